package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/grading"
	"github.com/chuoapp/chuo/core/user"
)

type gradingApi struct {
	svc     grading.Service
	userSvc user.Service
}

func registerGradingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc grading.Service, userSvc user.Service) {
	api := gradingApi{svc: svc, userSvc: userSvc}

	gg := g.Group("/grading", jwt)
	gg.GET("/scale", api.scale)
	gg.PUT("/scale", api.replaceScale, adminMiddleware())
	gg.GET("/rankings", api.rankings, adminMiddleware())

	// students only ever see their own figures
	sg := g.Group("/students/:studentID", jwt, selfOrAdminMiddleware("studentID"))
	sg.GET("/transcript", api.transcript)
	sg.GET("/gpa", api.gpa)
	sg.GET("/grades/:courseID", api.courseGrade)
}

func (api *gradingApi) scale(ctx echo.Context) error {
	scale, err := api.svc.GetScale(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting grading scale")
	}
	return ctx.JSON(http.StatusOK, scale)
}

func (api *gradingApi) replaceScale(ctx echo.Context) error {
	var scale grading.Scale
	if err := ctx.Bind(&scale); err != nil {
		return errors.Wrap(err, "binding to Scale")
	}
	if err := api.svc.ReplaceScale(ctx.Request().Context(), scale); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, scale)
}

func (api *gradingApi) transcript(ctx echo.Context) error {
	tr, err := api.svc.Transcript(ctx.Request().Context(), ctx.Param("studentID"))
	if err != nil {
		return errors.Wrap(err, "building transcript")
	}
	return ctx.JSON(http.StatusOK, tr)
}

// gpa returns the semester GPA when a semester_id is supplied, the CGPA
// otherwise.
func (api *gradingApi) gpa(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	studentID := ctx.Param("studentID")

	if semesterID := ctx.QueryParam("semester_id"); semesterID != "" {
		gpa, err := api.svc.StudentSemesterGPA(rctx, studentID, semesterID)
		if err != nil {
			return errors.Wrap(err, "computing semester GPA")
		}
		return ctx.JSON(http.StatusOK, GPAResponse{StudentID: studentID, SemesterID: semesterID, GPA: gpa})
	}

	cgpa, err := api.svc.CumulativeGPA(rctx, studentID)
	if err != nil {
		return errors.Wrap(err, "computing CGPA")
	}
	return ctx.JSON(http.StatusOK, GPAResponse{StudentID: studentID, GPA: cgpa})
}

func (api *gradingApi) courseGrade(ctx echo.Context) error {
	semesterID := ctx.QueryParam("semester_id")
	if semesterID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "semester_id is required")
	}

	cg, err := api.svc.CourseGrade(ctx.Request().Context(), ctx.Param("studentID"), ctx.Param("courseID"), semesterID)
	if err != nil {
		return errors.Wrap(err, "computing course grade")
	}
	return ctx.JSON(http.StatusOK, cg)
}

func (api *gradingApi) rankings(ctx echo.Context) error {
	var query RankingsRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to RankingsRequest")
	}

	rankings, err := api.svc.Rank(ctx.Request().Context(), query.StudentIDs)
	if err != nil {
		return errors.Wrap(err, "ranking students")
	}
	if rankings == nil {
		rankings = []grading.Ranking{}
	}
	return ctx.JSON(http.StatusOK, rankings)
}

type (
	GPAResponse struct {
		StudentID  string  `json:"student_id"`
		SemesterID string  `json:"semester_id,omitempty"`
		GPA        float64 `json:"gpa"`
	}

	RankingsRequest struct {
		StudentIDs []string `query:"student_id"`
	}
)
