package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/enrollment"
	"github.com/hoangvu/educenter/core/user"
)

type catalogApi struct {
	svc    *catalog.Service
	ledger *enrollment.Service
	users  *user.Service
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *catalog.Service, ledger *enrollment.Service, users *user.Service) {
	api := catalogApi{svc: svc, ledger: ledger, users: users}

	cg := g.Group("/courses", jwt, employeeMiddleware())
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.GET("/:id/students", api.enrolledStudents)

	bg := g.Group("/banners", jwt, employeeMiddleware())
	bg.POST("", api.createBanner)
	bg.GET("", api.queryBanners)
	bg.GET("/:id", api.retrieveBanner)
	bg.PUT("/:id", api.updateBanner)
	bg.DELETE("/:id", api.destroyBanner)
}

// Course handlers

func (api *catalogApi) create(ctx echo.Context) error {
	var data catalog.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	course, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, envelope("course", course, "course created"))
}

func (api *catalogApi) query(ctx echo.Context) error {
	filter := new(catalog.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, envelope("courses", []catalog.Course{}))
	}
	filter.Clean()

	var courses []catalog.Course
	var err error
	if filter.IsEmpty() {
		courses, err = api.svc.QueryAll(ctx.Request().Context())
	} else {
		courses, err = api.svc.Filter(ctx.Request().Context(), *filter)
	}
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []catalog.Course{}
	}
	return ctx.JSON(http.StatusOK, envelope("courses", courses))
}

func (api *catalogApi) retrieve(ctx echo.Context) error {
	course, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, envelope("course", course))
}

func (api *catalogApi) update(ctx echo.Context) error {
	var data catalog.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	course, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, envelope("course", course, "course updated"))
}

func (api *catalogApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// EnrolledStudent is a course's enrolled-users view entry, joined from the
// enrollment ledger.
type EnrolledStudent struct {
	EnrollmentID  string `json:"enrollment_id"`
	StudentID     string `json:"student_id"`
	StudentName   string `json:"student_name"`
	StudentEmail  string `json:"student_email"`
	ClassID       string `json:"class_id,omitempty"`
	PaymentStatus string `json:"payment_status"`
}

func (api *catalogApi) enrolledStudents(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if _, err := api.svc.GetByID(reqCtx, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "getting course")
	}

	enrollments, err := api.ledger.ForCourse(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying course enrollments")
	}

	students := make([]EnrolledStudent, 0, len(enrollments))
	for _, enr := range enrollments {
		entry := EnrolledStudent{
			EnrollmentID:  enr.ID,
			StudentID:     enr.StudentID,
			ClassID:       enr.ClassID,
			PaymentStatus: enr.PaymentStatus,
		}
		if usr, err := api.users.GetByID(reqCtx, enr.StudentID); err == nil {
			entry.StudentName = usr.FullName()
			entry.StudentEmail = usr.Email
		}
		students = append(students, entry)
	}
	return ctx.JSON(http.StatusOK, envelope("students", students))
}

// Banner handlers

func (api *catalogApi) createBanner(ctx echo.Context) error {
	var data catalog.NewBanner
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBanner")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	banner, err := api.svc.CreateBanner(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating banner")
	}
	return ctx.JSON(http.StatusCreated, envelope("banner", banner, "banner created"))
}

func (api *catalogApi) queryBanners(ctx echo.Context) error {
	banners, err := api.svc.QueryAllBanners(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying banners")
	}
	if banners == nil {
		banners = []catalog.Banner{}
	}
	return ctx.JSON(http.StatusOK, envelope("banners", banners))
}

func (api *catalogApi) retrieveBanner(ctx echo.Context) error {
	banner, err := api.svc.GetBannerByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting banner")
	}
	return ctx.JSON(http.StatusOK, envelope("banner", banner))
}

func (api *catalogApi) updateBanner(ctx echo.Context) error {
	var data catalog.UpdateBanner
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBanner")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	banner, err := api.svc.UpdateBanner(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating banner")
	}
	return ctx.JSON(http.StatusOK, envelope("banner", banner, "banner updated"))
}

func (api *catalogApi) destroyBanner(ctx echo.Context) error {
	if err := api.svc.DeleteBanner(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting banner")
	}
	return ctx.NoContent(http.StatusNoContent)
}
