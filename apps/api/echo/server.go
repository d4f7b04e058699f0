package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/enrollment"
	"github.com/hoangvu/educenter/core/lead"
	"github.com/hoangvu/educenter/core/schedule"
	"github.com/hoangvu/educenter/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Conf   *core.Config
		Logger core.Logger
		// Shutdown signals the app to shut down gracefully when an
		// unrecoverable error is caught.
		Shutdown func()

		UserSvc     *user.Service
		CatalogSvc  *catalog.Service
		ScheduleSvc *schedule.Service
		LedgerSvc   *enrollment.Service
		LeadSvc     *lead.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Shutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	auth := newJWTAuth(conf, s.opts.UserSvc)
	jwt := middleware.JWTWithConfig(auth.config)

	v1 := s.app.Group("/v1")
	registerUserAPI(v1, jwt, auth, s.opts.UserSvc)
	registerCatalogAPI(v1, jwt, s.opts.CatalogSvc, s.opts.LedgerSvc, s.opts.UserSvc)
	registerScheduleAPI(v1, jwt, s.opts.ScheduleSvc)
	registerEnrollmentAPI(v1, jwt, s.opts.LedgerSvc)
	registerLeadAPI(v1, jwt, s.opts.LeadSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to EduCenter API!")
}
