package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/academic"
	"github.com/chuoapp/chuo/core/assessment"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/grading"
	"github.com/chuoapp/chuo/core/registration"
	"github.com/chuoapp/chuo/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		UserSvc         user.Service
		AcademicSvc     academic.Service
		GradingSvc      grading.Service
		AssessmentSvc   assessment.Service
		EnrollmentSvc   enrollment.Service
		RegistrationSvc registration.Service
		NotifSvc        core.NotificationService

		Logger core.Logger
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan struct{}
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan struct{}, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(requestMetricsMiddleware())
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerAcademicAPI(v1, jwt, s.opts.AcademicSvc)
	registerGradingAPI(v1, jwt, s.opts.GradingSvc, s.opts.UserSvc)
	registerAssessmentAPI(v1, jwt, s.opts.AssessmentSvc, s.opts.UserSvc)
	registerEnrollmentAPI(v1, jwt, s.opts.EnrollmentSvc, s.opts.UserSvc)
	registerRegistrationAPI(v1, jwt, s.opts.RegistrationSvc, s.opts.UserSvc)
	registerNotificationAPI(v1, jwt, s.opts.NotifSvc)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// signalShutdown is called by the error handler when an unrecoverable error
// is caught; main drains the channel and stops the server.
func (s *server) signalShutdown() {
	select {
	case s.shutdown <- struct{}{}:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Chuo API!")
}
