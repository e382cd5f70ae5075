package echoapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/registration"
	"github.com/chuoapp/chuo/core/user"
)

type registrationApi struct {
	svc     registration.Service
	userSvc user.Service
}

func registerRegistrationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc registration.Service, userSvc user.Service) {
	api := registrationApi{svc: svc, userSvc: userSvc}

	g.PUT("/registrations/insurance-config", api.setInsuranceConfig, jwt, adminMiddleware())

	rg := g.Group("/registrations/:studentID/:semesterID", jwt)
	rg.GET("", api.retrieve, selfOrAdminMiddleware("studentID"))
	rg.GET("/eligibility", api.eligibility, selfOrAdminMiddleware("studentID"))
	rg.GET("/audit", api.auditTrail, adminMiddleware())
	rg.POST("/block", api.block, adminMiddleware())
	rg.POST("/unblock", api.unblock, adminMiddleware())
	rg.POST("/override", api.override, adminMiddleware())
	rg.POST("/verify-fees", api.verifyFees, adminMiddleware())
	rg.POST("/verify-insurance", api.verifyInsurance, adminMiddleware())
}

func mapRegistrationErr(err error, op string) error {
	switch errors.Cause(err) {
	case nil:
		return nil
	case registration.ErrNotFound, registration.ErrProgramNotFound:
		return errHttpNotFound
	}
	return errors.Wrap(err, op)
}

func (api *registrationApi) retrieve(ctx echo.Context) error {
	reg, err := api.svc.Get(ctx.Request().Context(), ctx.Param("studentID"), ctx.Param("semesterID"))
	if err != nil {
		return mapRegistrationErr(err, "finding registration")
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *registrationApi) eligibility(ctx echo.Context) error {
	decision, err := api.svc.CanRegister(ctx.Request().Context(), ctx.Param("studentID"), ctx.Param("semesterID"))
	if err != nil {
		return mapRegistrationErr(err, "checking registration eligibility")
	}
	registrationChecksTotal.WithLabelValues(strconv.FormatBool(decision.Eligible)).Inc()
	return ctx.JSON(http.StatusOK, decision)
}

func (api *registrationApi) auditTrail(ctx echo.Context) error {
	entries, err := api.svc.AuditTrail(ctx.Request().Context(), ctx.Param("studentID"), ctx.Param("semesterID"))
	if err != nil {
		return mapRegistrationErr(err, "listing registration audit trail")
	}
	if entries == nil {
		entries = []registration.AuditEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *registrationApi) block(ctx echo.Context) error {
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

	reg, err := api.svc.Block(ctx.Request().Context(), ctx.Param("studentID"), ctx.Param("semesterID"), data.Reason, claims.Subject)
	if err != nil {
		return mapRegistrationErr(err, "blocking registration")
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *registrationApi) unblock(ctx echo.Context) error {
	return api.transition(ctx, "unblocking registration", api.svc.Unblock)
}

func (api *registrationApi) override(ctx echo.Context) error {
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

	reg, err := api.svc.Override(ctx.Request().Context(), ctx.Param("studentID"), ctx.Param("semesterID"), data.Reason, claims.Subject)
	if err != nil {
		return mapRegistrationErr(err, "overriding registration block")
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *registrationApi) verifyFees(ctx echo.Context) error {
	return api.transition(ctx, "verifying fee payment", api.svc.VerifyFees)
}

func (api *registrationApi) verifyInsurance(ctx echo.Context) error {
	return api.transition(ctx, "verifying health insurance", api.svc.VerifyInsurance)
}

func (api *registrationApi) setInsuranceConfig(ctx echo.Context) error {
	var data registration.NewInsuranceConfig
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInsuranceConfig")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cfg, err := api.svc.SetInsuranceConfig(ctx.Request().Context(), data)
	if err != nil {
		return mapRegistrationErr(err, "setting insurance config")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *registrationApi) transition(
	ctx echo.Context,
	op string,
	fn func(ctx context.Context, studentID, semesterID, adminID string) (registration.Registration, error),
) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	reg, err := fn(ctx.Request().Context(), ctx.Param("studentID"), ctx.Param("semesterID"), claims.Subject)
	if err != nil {
		return mapRegistrationErr(err, op)
	}
	return ctx.JSON(http.StatusOK, reg)
}
