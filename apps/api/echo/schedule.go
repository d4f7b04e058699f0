package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/enrollment"
	"github.com/hoangvu/educenter/core/schedule"
)

type scheduleApi struct {
	svc *schedule.Service
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *schedule.Service) {
	api := scheduleApi{svc: svc}

	cg := g.Group("/classes", jwt, employeeMiddleware())
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.GET("/:id/roster", api.roster)
	cg.POST("/:id/students", api.enrollStudent)
	cg.DELETE("/:id/students/:studentID", api.removeStudent)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, envelope("class", cls, "class created"))
}

func (api *scheduleApi) query(ctx echo.Context) error {
	filter := new(schedule.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, envelope("classes", []schedule.Class{}))
	}
	filter.Clean()

	var classes []schedule.Class
	var err error
	if filter.IsEmpty() {
		classes, err = api.svc.QueryAll(ctx.Request().Context())
	} else {
		classes, err = api.svc.Filter(ctx.Request().Context(), *filter)
	}
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []schedule.Class{}
	}
	return ctx.JSON(http.StatusOK, envelope("classes", classes))
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, envelope("class", cls))
}

func (api *scheduleApi) update(ctx echo.Context) error {
	var data schedule.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, envelope("class", cls, "class updated"))
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) roster(ctx echo.Context) error {
	roster, err := api.svc.Roster(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying class roster")
	}
	if roster == nil {
		roster = []schedule.RosterEntry{}
	}
	return ctx.JSON(http.StatusOK, envelope("roster", roster))
}

func (api *scheduleApi) enrollStudent(ctx echo.Context) error {
	var data EnrollStudentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollStudentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	opts := enrollment.Options{Discount: data.Discount}
	if data.PaymentStatus != "" {
		opts.PaymentStatus = data.PaymentStatus
	}

	enr, err := api.svc.EnrollStudent(ctx.Request().Context(), ctx.Param("id"), data.StudentID, opts)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, envelope("enrollment", enr, "student enrolled"))
}

func (api *scheduleApi) removeStudent(ctx echo.Context) error {
	err := api.svc.RemoveStudent(ctx.Request().Context(), ctx.Param("id"), ctx.Param("studentID"))
	if err != nil {
		return errors.Wrap(err, "removing student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type EnrollStudentRequest struct {
	StudentID     string `json:"student_id" validate:"required"`
	PaymentStatus string `json:"payment_status" validate:"omitempty,oneof=unpaid paid"`
	Discount      bool   `json:"is_discount"`
}

func (er *EnrollStudentRequest) Validate() error {
	return core.Validate.Struct(er)
}
