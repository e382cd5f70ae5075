package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/user"
)

type enrollmentApi struct {
	svc     enrollment.Service
	userSvc user.Service
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc enrollment.Service, userSvc user.Service) {
	api := enrollmentApi{svc: svc, userSvc: userSvc}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.queryCourses)
	cg.GET("/:id", api.retrieveCourse)
	cg.POST("", api.createCourse, adminMiddleware())
	cg.GET("/:id/prerequisites", api.prerequisites)
	cg.POST("/:id/prerequisites", api.addPrerequisite, adminMiddleware())
	cg.POST("/:id/time-slots", api.addTimeSlot, adminMiddleware())

	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.enroll)
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)
	eg.POST("/:id/approve", api.approve, adminMiddleware())
	eg.POST("/:id/reject", api.reject, adminMiddleware())
	eg.POST("/:id/complete", api.complete, adminMiddleware())
	eg.POST("/:id/withdraw", api.withdraw)
	eg.GET("/:id/audit", api.auditTrail, adminMiddleware())
}

func mapEnrollmentErr(err error, op string) error {
	switch errors.Cause(err) {
	case nil:
		return nil
	case enrollment.ErrCourseNotFound, enrollment.ErrEnrollmentNotFound:
		return errHttpNotFound
	}
	return errors.Wrap(err, op)
}

// Course handlers

func (api *enrollmentApi) createCourse(ctx echo.Context) error {
	var data enrollment.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	course, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return mapEnrollmentErr(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *enrollmentApi) queryCourses(ctx echo.Context) error {
	courses, err := api.svc.QueryAllCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []enrollment.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *enrollmentApi) retrieveCourse(ctx echo.Context) error {
	course, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapEnrollmentErr(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *enrollmentApi) prerequisites(ctx echo.Context) error {
	prereqs, err := api.svc.Prerequisites(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapEnrollmentErr(err, "listing prerequisites")
	}
	if prereqs == nil {
		prereqs = []enrollment.Prerequisite{}
	}
	return ctx.JSON(http.StatusOK, prereqs)
}

func (api *enrollmentApi) addPrerequisite(ctx echo.Context) error {
	var data enrollment.NewPrerequisite
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPrerequisite")
	}
	data.CourseID = ctx.Param("id")
	if err := data.Validate(); err != nil {
		return err
	}

	prereq, err := api.svc.AddPrerequisite(ctx.Request().Context(), data)
	if err != nil {
		return mapEnrollmentErr(err, "adding prerequisite")
	}
	return ctx.JSON(http.StatusCreated, prereq)
}

func (api *enrollmentApi) addTimeSlot(ctx echo.Context) error {
	var data enrollment.NewTimeSlot
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTimeSlot")
	}
	data.CourseID = ctx.Param("id")
	if err := data.Validate(); err != nil {
		return err
	}

	slot, err := api.svc.AddTimeSlot(ctx.Request().Context(), data)
	if err != nil {
		return mapEnrollmentErr(err, "adding time slot")
	}
	return ctx.JSON(http.StatusCreated, slot)
}

// Enrollment handlers

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// students only ever enroll themselves
	if !claims.IsAdmin {
		data.StudentID = claims.Subject
	}
	if err := data.Validate(); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return mapEnrollmentErr(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	var filter enrollment.Filter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []enrollment.Enrollment{})
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin {
		filter.StudentID = claims.Subject
	}

	enrs, err := api.svc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	enr, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapEnrollmentErr(err, "finding enrollment")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin && enr.StudentID != claims.Subject {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) approve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enr, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return mapEnrollmentErr(err, "approving enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) reject(ctx echo.Context) error {
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

	enr, err := api.svc.Reject(ctx.Request().Context(), ctx.Param("id"), data.Reason, claims.Subject)
	if err != nil {
		return mapEnrollmentErr(err, "rejecting enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) complete(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enr, err := api.svc.Complete(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return mapEnrollmentErr(err, "completing enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) withdraw(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enr, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapEnrollmentErr(err, "finding enrollment")
	}
	// students only ever withdraw themselves
	if !claims.IsAdmin && enr.StudentID != claims.Subject {
		return errHttpNotFound
	}

	enr, err = api.svc.Withdraw(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return mapEnrollmentErr(err, "withdrawing enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) auditTrail(ctx echo.Context) error {
	entries, err := api.svc.AuditTrail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapEnrollmentErr(err, "listing enrollment audit trail")
	}
	if entries == nil {
		entries = []enrollment.AuditEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}
