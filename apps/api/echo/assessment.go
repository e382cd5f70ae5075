package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/assessment"
	"github.com/chuoapp/chuo/core/user"
)

type assessmentApi struct {
	svc     assessment.Service
	userSvc user.Service
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc assessment.Service, userSvc user.Service) {
	api := assessmentApi{svc: svc, userSvc: userSvc}

	cg := g.Group("/assessments/ca", jwt)
	cg.POST("", api.createCA, lecturerMiddleware())
	cg.GET("", api.queryCAs, lecturerMiddleware())
	cg.GET("/:id", api.retrieveCA, lecturerMiddleware())
	cg.PUT("/:id/score", api.updateCAScore, lecturerMiddleware())
	cg.POST("/:id/lock", api.lockCA, lecturerMiddleware())
	cg.POST("/:id/submit", api.submitCA, lecturerMiddleware())
	cg.POST("/:id/approve", api.approveCA, adminMiddleware())
	cg.POST("/:id/reject", api.rejectCA, adminMiddleware())
	cg.POST("/bulk-approve", api.bulkApproveCA, adminMiddleware())
	cg.POST("/bulk-reject", api.bulkRejectCA, adminMiddleware())

	eg := g.Group("/assessments/exams", jwt)
	eg.POST("", api.createExam, lecturerMiddleware())
	eg.GET("", api.queryExams)
	eg.GET("/:id", api.retrieveExam, lecturerMiddleware())
	eg.PUT("/:id/score", api.updateExamScore, lecturerMiddleware())
	eg.POST("/:id/lock", api.lockExam, lecturerMiddleware())
	eg.POST("/:id/submit", api.submitExam, lecturerMiddleware())
	eg.POST("/:id/approve", api.approveExam, adminMiddleware())
	eg.POST("/:id/request-changes", api.requestExamChanges, adminMiddleware())
	eg.POST("/:id/publish", api.publishExam, adminMiddleware())
	eg.POST("/bulk-publish", api.bulkPublishExams, adminMiddleware())
}

// mapAssessmentErr translates the service sentinels into HTTP errors.
// Precondition and validation errors pass through for the error handler.
func mapAssessmentErr(err error, op string) error {
	switch errors.Cause(err) {
	case nil:
		return nil
	case assessment.ErrCANotFound, assessment.ErrExamNotFound:
		return errHttpNotFound
	case assessment.ErrNotOwner:
		return errHttpForbidden
	case assessment.ErrVersionConflict:
		return errHttpConflict
	}
	return errors.Wrap(err, op)
}

// CA handlers

func (api *assessmentApi) createCA(ctx echo.Context) error {
	var data assessment.NewContinuousAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContinuousAssessment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ca, err := api.svc.CreateCA(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return mapAssessmentErr(err, "creating continuous assessment")
	}
	return ctx.JSON(http.StatusCreated, ca)
}

func (api *assessmentApi) queryCAs(ctx echo.Context) error {
	var filter assessment.CAFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []assessment.ContinuousAssessment{})
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// lecturers only ever see their own rows
	if !claims.IsAdmin {
		filter.LecturerID = claims.Subject
	}

	cas, err := api.svc.FilterCAs(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying continuous assessments")
	}
	if cas == nil {
		cas = []assessment.ContinuousAssessment{}
	}
	return ctx.JSON(http.StatusOK, cas)
}

func (api *assessmentApi) retrieveCA(ctx echo.Context) error {
	ca, err := api.svc.GetCA(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapAssessmentErr(err, "finding continuous assessment")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin && ca.LecturerID != claims.Subject {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, ca)
}

func (api *assessmentApi) updateCAScore(ctx echo.Context) error {
	var data assessment.UpdateScore
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateScore")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ca, err := api.svc.UpdateCAScore(ctx.Request().Context(), ctx.Param("id"), data, claims.Subject)
	if err != nil {
		return mapAssessmentErr(err, "updating CA score")
	}
	return ctx.JSON(http.StatusOK, ca)
}

func (api *assessmentApi) lockCA(ctx echo.Context) error {
	return api.caTransition(ctx, "locking continuous assessment", api.svc.LockCA)
}

func (api *assessmentApi) submitCA(ctx echo.Context) error {
	return api.caTransition(ctx, "submitting continuous assessment", api.svc.SubmitCAForApproval)
}

func (api *assessmentApi) approveCA(ctx echo.Context) error {
	return api.caTransition(ctx, "approving continuous assessment", api.svc.ApproveCA)
}

func (api *assessmentApi) rejectCA(ctx echo.Context) error {
	var data ReasonRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReasonRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ca, err := api.svc.RejectCA(ctx.Request().Context(), ctx.Param("id"), data.Reason, claims.Subject)
	if err != nil {
		return mapAssessmentErr(err, "rejecting continuous assessment")
	}
	return ctx.JSON(http.StatusOK, ca)
}

func (api *assessmentApi) bulkApproveCA(ctx echo.Context) error {
	var data BulkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	report, err := api.svc.BulkApproveCA(ctx.Request().Context(), data.IDs, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "bulk-approving continuous assessments")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *assessmentApi) bulkRejectCA(ctx echo.Context) error {
	var data BulkReasonRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkReasonRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	report, err := api.svc.BulkRejectCA(ctx.Request().Context(), data.IDs, data.Reason, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "bulk-rejecting continuous assessments")
	}
	return ctx.JSON(http.StatusOK, report)
}

// Exam handlers

func (api *assessmentApi) createExam(ctx echo.Context) error {
	var data assessment.NewFinalExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFinalExam")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	exam, err := api.svc.CreateExam(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return mapAssessmentErr(err, "creating final exam")
	}
	return ctx.JSON(http.StatusCreated, exam)
}

func (api *assessmentApi) queryExams(ctx echo.Context) error {
	var filter assessment.ExamFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []assessment.FinalExam{})
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// students only ever see their own published results
	switch {
	case claims.IsAdmin:
	case claims.IsLecturer:
		filter.LecturerID = claims.Subject
	default:
		filter.StudentID = claims.Subject
		filter.PublishedOnly = true
	}

	exams, err := api.svc.FilterExams(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying final exams")
	}
	if exams == nil {
		exams = []assessment.FinalExam{}
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *assessmentApi) retrieveExam(ctx echo.Context) error {
	exam, err := api.svc.GetExam(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapAssessmentErr(err, "finding final exam")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin && exam.LecturerID != claims.Subject {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, exam)
}

func (api *assessmentApi) updateExamScore(ctx echo.Context) error {
	var data assessment.UpdateScore
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateScore")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	exam, err := api.svc.UpdateExamScore(ctx.Request().Context(), ctx.Param("id"), data, claims.Subject)
	if err != nil {
		return mapAssessmentErr(err, "updating exam score")
	}
	return ctx.JSON(http.StatusOK, exam)
}

func (api *assessmentApi) lockExam(ctx echo.Context) error {
	return api.examTransition(ctx, "locking final exam", api.svc.LockExam)
}

func (api *assessmentApi) submitExam(ctx echo.Context) error {
	return api.examTransition(ctx, "submitting final exam", api.svc.SubmitExamForModeration)
}

func (api *assessmentApi) approveExam(ctx echo.Context) error {
	return api.examTransition(ctx, "approving exam moderation", api.svc.ApproveExamModeration)
}

func (api *assessmentApi) requestExamChanges(ctx echo.Context) error {
	var data ReasonRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReasonRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	exam, err := api.svc.RequestExamChanges(ctx.Request().Context(), ctx.Param("id"), data.Reason, claims.Subject)
	if err != nil {
		return mapAssessmentErr(err, "requesting exam changes")
	}
	return ctx.JSON(http.StatusOK, exam)
}

func (api *assessmentApi) publishExam(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	exam, err := api.svc.PublishExam(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return mapAssessmentErr(err, "publishing final exam")
	}
	resultsPublishedTotal.Inc()
	return ctx.JSON(http.StatusOK, exam)
}

func (api *assessmentApi) bulkPublishExams(ctx echo.Context) error {
	var data BulkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	report, err := api.svc.BulkPublishExams(ctx.Request().Context(), data.IDs, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "bulk-publishing final exams")
	}
	resultsPublishedTotal.Add(float64(report.Succeeded))
	return ctx.JSON(http.StatusOK, report)
}

// helpers

func (api *assessmentApi) caTransition(
	ctx echo.Context,
	op string,
	fn func(ctx context.Context, id, actorID string) (assessment.ContinuousAssessment, error),
) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ca, err := fn(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return mapAssessmentErr(err, op)
	}
	return ctx.JSON(http.StatusOK, ca)
}

func (api *assessmentApi) examTransition(
	ctx echo.Context,
	op string,
	fn func(ctx context.Context, id, actorID string) (assessment.FinalExam, error),
) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	exam, err := fn(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return mapAssessmentErr(err, op)
	}
	return ctx.JSON(http.StatusOK, exam)
}

type (
	ReasonRequest struct {
		Reason string `json:"reason" validate:"required"`
	}

	BulkRequest struct {
		IDs []string `json:"ids" validate:"required,min=1"`
	}

	BulkReasonRequest struct {
		IDs    []string `json:"ids" validate:"required,min=1"`
		Reason string   `json:"reason" validate:"required"`
	}
)

func (rr *ReasonRequest) Validate() error {
	rr.Reason = core.CleanString(rr.Reason)
	return core.Validate.Struct(rr)
}

func (br *BulkRequest) Validate() error { return core.Validate.Struct(br) }

func (br *BulkReasonRequest) Validate() error {
	br.Reason = core.CleanString(br.Reason)
	return core.Validate.Struct(br)
}
