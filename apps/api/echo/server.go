package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/researchnest/backend/core"
	"github.com/researchnest/backend/core/course"
	"github.com/researchnest/backend/core/user"
)

type Server struct {
	conf       *core.Config
	app        *echo.Echo
	logger     core.Logger
	userSvc    user.ServiceInterface
	courseSvc  course.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
	jwtConfig  middleware.JWTConfig

	shutdown chan os.Signal
	errors   chan error
}

func NewServer(
	conf *core.Config,
	logger core.Logger,
	userSvc user.ServiceInterface,
	courseSvc course.ServiceInterface,
	validate *validator.Validate,
	translator ut.Translator,
) *Server {
	s := &Server{
		conf:       conf,
		app:        echo.New(),
		logger:     logger,
		userSvc:    userSvc,
		courseSvc:  courseSvc,
		validate:   validate,
		translator: translator,
		jwtConfig:  newJWTConfig(conf),
		shutdown:   make(chan os.Signal, 1),
		errors:     make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	debug := s.conf.Debug && !s.conf.TestMode

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if debug {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.translator)
	s.app.Debug = debug

	s.app.GET("/", s.home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(s.jwtConfig)
	limiter := newRateLimiter(s.conf.Server.AuthRateLimit, s.conf.Server.AuthRateBurst)

	s.registerUserAPI(g, jwt, limiter.middleware)
	s.registerCourseAPI(g, jwt)
	s.registerStudentAPI(g, jwt)
}

func (s *Server) Start() {
	if err := s.app.Start(s.conf.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Shutdown gracefully shuts down the server without interrupting any active connections.
func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

// Close immediately stops the server.
func (s *Server) Close() error {
	return s.app.Close()
}

// Errors returns the errors the server failed to start or serve with.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal returns the channel receiving the interrupt & terminate signals.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
