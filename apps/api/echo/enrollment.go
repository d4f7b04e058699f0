package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/enrollment"
)

type enrollmentApi struct {
	svc *enrollment.Service
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *enrollment.Service) {
	api := enrollmentApi{svc: svc}

	eg := g.Group("/enrollments", jwt, employeeMiddleware())
	eg.POST("", api.enroll)
	eg.GET("", api.query)
	eg.GET("/outstanding", api.outstanding)
	eg.POST("/transfer", api.transfer)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id/payment", api.setPaymentStatus)
	eg.PUT("/:id/discount", api.setDiscount)
	eg.DELETE("", api.remove)
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	opts := enrollment.Options{PaymentStatus: data.PaymentStatus, Discount: data.Discount}
	enr, err := api.svc.Enroll(ctx.Request().Context(), data.StudentID, data.CourseID, data.ClassID, opts)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, envelope("enrollment", enr, "student enrolled"))
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	filter := new(enrollment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, envelope("enrollments", []enrollment.Enrollment{}))
	}

	enrollments, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, envelope("enrollments", enrollments))
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	enr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting enrollment")
	}
	return ctx.JSON(http.StatusOK, envelope("enrollment", enr))
}

func (api *enrollmentApi) transfer(ctx echo.Context) error {
	var data TransferRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransferRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	enr, err := api.svc.Transfer(ctx.Request().Context(), data.StudentID, data.FromCourseID, data.ToCourseID)
	if err != nil {
		return errors.Wrap(err, "transferring enrollment")
	}
	return ctx.JSON(http.StatusOK, envelope("enrollment", enr, "student transferred"))
}

func (api *enrollmentApi) setPaymentStatus(ctx echo.Context) error {
	var data PaymentStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentStatusRequest")
	}

	enr, err := api.svc.SetPaymentStatus(ctx.Request().Context(), ctx.Param("id"), data.PaymentStatus)
	if err != nil {
		return errors.Wrap(err, "setting payment status")
	}
	return ctx.JSON(http.StatusOK, envelope("enrollment", enr, "payment status updated"))
}

func (api *enrollmentApi) setDiscount(ctx echo.Context) error {
	var data DiscountRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DiscountRequest")
	}

	enr, err := api.svc.SetDiscount(ctx.Request().Context(), ctx.Param("id"), data.Discount)
	if err != nil {
		return errors.Wrap(err, "setting discount")
	}
	return ctx.JSON(http.StatusOK, envelope("enrollment", enr, "discount updated"))
}

func (api *enrollmentApi) outstanding(ctx echo.Context) error {
	total, err := api.svc.ComputeOutstanding(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing outstanding amount")
	}
	return ctx.JSON(http.StatusOK, envelope("outstanding", total))
}

func (api *enrollmentApi) remove(ctx echo.Context) error {
	var data RemoveEnrollmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RemoveEnrollmentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.Remove(ctx.Request().Context(), data.CourseID, data.StudentID); err != nil {
		return errors.Wrap(err, "removing enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	EnrollRequest struct {
		StudentID     string `json:"student_id" validate:"required"`
		CourseID      string `json:"course_id" validate:"required"`
		ClassID       string `json:"class_id"`
		PaymentStatus string `json:"payment_status" validate:"omitempty,oneof=unpaid paid"`
		Discount      bool   `json:"is_discount"`
	}

	TransferRequest struct {
		StudentID    string `json:"student_id" validate:"required"`
		FromCourseID string `json:"from_course_id" validate:"required"`
		ToCourseID   string `json:"to_course_id" validate:"required"`
	}

	PaymentStatusRequest struct {
		PaymentStatus string `json:"payment_status"`
	}

	DiscountRequest struct {
		Discount bool `json:"is_discount"`
	}

	RemoveEnrollmentRequest struct {
		CourseID  string `query:"course_id" validate:"required"`
		StudentID string `query:"student_id" validate:"required"`
	}
)

func (er *EnrollRequest) Validate() error {
	return core.Validate.Struct(er)
}

func (tr *TransferRequest) Validate() error {
	return core.Validate.Struct(tr)
}

func (rr *RemoveEnrollmentRequest) Validate() error {
	return core.Validate.Struct(rr)
}
