package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/academic"
)

type academicApi struct {
	svc academic.Service
}

func registerAcademicAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc academic.Service) {
	api := academicApi{svc: svc}

	ag := g.Group("/semesters", jwt)
	ag.GET("", api.query)
	ag.GET("/current", api.current)
	ag.GET("/:id", api.retrieve)
	ag.POST("", api.create, adminMiddleware())
	ag.POST("/:id/activate", api.activate, adminMiddleware())
}

func (api *academicApi) create(ctx echo.Context) error {
	var data academic.NewSemester
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSemester")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sem, err := api.svc.CreateSemester(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating semester")
	}
	return ctx.JSON(http.StatusCreated, sem)
}

func (api *academicApi) query(ctx echo.Context) error {
	sems, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying semesters")
	}
	if sems == nil {
		sems = []academic.Semester{}
	}
	return ctx.JSON(http.StatusOK, sems)
}

func (api *academicApi) current(ctx echo.Context) error {
	sem, err := api.svc.Current(ctx.Request().Context())
	if err != nil {
		if errors.Cause(err) == academic.ErrNoCurrentSemester {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting current semester")
	}
	return ctx.JSON(http.StatusOK, sem)
}

func (api *academicApi) retrieve(ctx echo.Context) error {
	sem, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding semester by ID")
	}
	return ctx.JSON(http.StatusOK, sem)
}

func (api *academicApi) activate(ctx echo.Context) error {
	sem, err := api.svc.Activate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "activating semester")
	}
	return ctx.JSON(http.StatusOK, sem)
}
