package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/duka/core"
	"github.com/trezcool/duka/core/stats"
	"github.com/trezcool/duka/core/visitor"
)

type visitorApi struct {
	svc        *visitor.Service
	statsSvc   *stats.Service
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
}

func registerVisitorAPI(
	g *echo.Group,
	auth echo.MiddlewareFunc,
	svc *visitor.Service,
	statsSvc *stats.Service,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
) {
	api := visitorApi{
		svc:        svc,
		statsSvc:   statsSvc,
		validate:   validate,
		translator: translator,
		logger:     logger,
	}

	vg := g.Group("/visitors", auth)

	vg.POST("", api.upsert)
	vg.GET("", api.query)

	// static paths before the parameterized detail routes
	vg.GET("/statistics", api.statistics)
	vg.GET("/geography", api.geography)
	vg.GET("/map", api.mapPoints)
	vg.GET("/ip/:ip", api.retrieveByIP)

	dg := vg.Group("/:id")
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *visitorApi) upsert(ctx echo.Context) error {
	var data visitor.NewVisitor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVisitor")
	}
	data.UserAgent = ctx.Request().UserAgent()
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.Upsert(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting visitor")
	}

	api.statsSvc.TouchSession(v.IPAddress)
	// the activity log is advisory, a failed write never fails the visit
	if _, err = api.statsSvc.RecordActivity(ctx.Request().Context(), v.ID); err != nil {
		api.logger.Warn(fmt.Sprintf("recording activity for %s: %v", v.ID, err))
	}

	return ctx.JSON(http.StatusCreated, v)
}

func (api *visitorApi) query(ctx echo.Context) error {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))

	result, err := api.svc.Query(ctx.Request().Context(), page, limit)
	if err != nil {
		return errors.Wrap(err, "querying visitors")
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *visitorApi) retrieveByIP(ctx echo.Context) error {
	v, err := api.svc.GetByIP(ctx.Request().Context(), ctx.Param("ip"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *visitorApi) update(ctx echo.Context) error {
	var data visitor.UpdateVisitor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateVisitor")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *visitorApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *visitorApi) statistics(ctx echo.Context) error {
	totals, err := api.statsSvc.VisitorTotals(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}
	return ctx.JSON(http.StatusOK, totals)
}

func (api *visitorApi) geography(ctx echo.Context) error {
	counts, err := api.svc.Geography(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "aggregating geography")
	}
	return ctx.JSON(http.StatusOK, counts)
}

func (api *visitorApi) mapPoints(ctx echo.Context) error {
	points, err := api.svc.MapPoints(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building map points")
	}
	return ctx.JSON(http.StatusOK, points)
}
