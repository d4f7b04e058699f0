package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hoangvu/educenter/core/lead"
	"github.com/hoangvu/educenter/core/user"
)

type leadApi struct {
	svc *lead.Service
}

func registerLeadAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *lead.Service) {
	api := leadApi{svc: svc}

	lg := g.Group("/leads", jwt, employeeMiddleware(user.RoleEmployeeAdmin, user.RoleEmployeeConsultant))
	lg.POST("", api.record)
	lg.GET("", api.query)
	lg.GET("/:id", api.retrieve)
	lg.PUT("/:id/contacted", api.markContacted)
	lg.PUT("/:id/reject", api.reject)
	lg.POST("/:id/convert", api.convert)
}

func (api *leadApi) record(ctx echo.Context) error {
	var data lead.NewLead
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLead")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ld, err := api.svc.Record(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording lead")
	}
	return ctx.JSON(http.StatusCreated, envelope("lead", ld, "lead recorded"))
}

func (api *leadApi) query(ctx echo.Context) error {
	filter := new(lead.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, envelope("leads", []lead.Lead{}))
	}
	filter.Clean()

	var leads []lead.Lead
	var err error
	if filter.IsEmpty() {
		leads, err = api.svc.QueryAll(ctx.Request().Context())
	} else {
		leads, err = api.svc.Filter(ctx.Request().Context(), *filter)
	}
	if err != nil {
		return errors.Wrap(err, "querying leads")
	}
	if leads == nil {
		leads = []lead.Lead{}
	}
	return ctx.JSON(http.StatusOK, envelope("leads", leads))
}

func (api *leadApi) retrieve(ctx echo.Context) error {
	ld, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting lead")
	}
	return ctx.JSON(http.StatusOK, envelope("lead", ld))
}

func (api *leadApi) markContacted(ctx echo.Context) error {
	ld, err := api.svc.MarkContacted(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking lead contacted")
	}
	return ctx.JSON(http.StatusOK, envelope("lead", ld, "lead marked contacted"))
}

func (api *leadApi) reject(ctx echo.Context) error {
	ld, err := api.svc.Reject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rejecting lead")
	}
	return ctx.JSON(http.StatusOK, envelope("lead", ld, "lead rejected"))
}

func (api *leadApi) convert(ctx echo.Context) error {
	var data lead.ConvertLead
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConvertLead")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	res, err := api.svc.Convert(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "converting lead")
	}

	resp := envelope("lead", res.Lead, "lead converted")
	resp["parent"] = res.Parent
	resp["student"] = res.Student
	resp["enrollments"] = res.Enrollments
	return ctx.JSON(http.StatusCreated, resp)
}
