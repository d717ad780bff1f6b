package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
	"github.com/trezcool/maabara/core/attendance"
	"github.com/trezcool/maabara/core/event"
	"github.com/trezcool/maabara/core/exam"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Logger         core.Logger

		ActorSvc      actor.Service
		Gate          *actor.Gate
		EventSvc      event.Service
		AttendanceSvc attendance.Service
		ExamSvc       exam.Service
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
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.SignalShutdown)
	// raw error bodies in DEV only; tests assert the rendered payloads
	s.app.Debug = core.Conf.Debug && !core.Conf.TestMode

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	session := sessionMiddleware(s.opts.Gate)

	registerActorAPI(v1, jwt, session, s.opts.ActorSvc, s.opts.Gate, s.opts.EventSvc)
	registerAttendanceAPI(v1, jwt, session, s.opts.ActorSvc, s.opts.AttendanceSvc)
	registerExamAPI(v1, jwt, session, s.opts.ActorSvc, s.opts.ExamSvc)
}

func (s *server) Start() {
	go func() {
		<-s.shutdown
		_ = s.Stop(context.Background())
	}()
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// SignalShutdown is used to gracefully shutdown the Server when an integrity issue is identified.
func (s *server) SignalShutdown() {
	s.shutdown <- struct{}{}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Maabara API!")
}
