package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kiln-build/kiln/api/rest/bind"
	"github.com/kiln-build/kiln/api/rest/controller/event"
	"github.com/kiln-build/kiln/api/rest/controller/job"
	"github.com/kiln-build/kiln/api/rest/controller/recipe"
	jsvc "github.com/kiln-build/kiln/api/rest/service/job"
	bus "github.com/kiln-build/kiln/internal/event"
	"github.com/kiln-build/kiln/internal/metrics"
	"github.com/kiln-build/kiln/pkg/log"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Config holds what the API needs to serve requests.
type Config struct {
	Jobs       jsvc.Job
	Bus        bus.Bus
	LogRoot    string
	OutputRoot string
	// Registry receives the HTTP and kiln metrics. A fresh registry is
	// created when nil.
	Registry *prometheus.Registry
}

// Server is kiln's HTTP API.
type Server struct {
	echo      *echo.Echo
	startedAt time.Time
	// base parents every request context; cancelling it ends
	// long-lived event streams on shutdown.
	base   context.Context
	cancel context.CancelFunc
}

// New builds the API and registers every route.
func New(cfg Config) *Server {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	metrics.Register(reg)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, startedAt: time.Now()}
	s.base, s.cancel = context.WithCancel(context.Background())
	e.Server.BaseContext = func(net.Listener) context.Context { return s.base }

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Warn("request failed",
					"method", v.Method, "uri", v.URI, "status", v.Status,
					"request_id", v.RequestID, "latency", v.Latency, "error", v.Error)
				return nil
			}
			log.Debug("request",
				"method", v.Method, "uri", v.URI, "status", v.Status,
				"request_id", v.RequestID, "latency", v.Latency)
			return nil
		},
	}))

	// metrics
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "kiln",
		Subsystem:  "http",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/v1/events"
		},
	}))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg}))

	// health
	e.GET("/health", s.Health)

	// REST
	bind.All(e.Group("/v1"), &bind.Controllers{
		Job:    job.New(cfg.Jobs, cfg.LogRoot, cfg.OutputRoot),
		Recipe: recipe.New(cfg.Jobs),
		Event:  event.New(cfg.Bus),
	})

	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	log.Info("api listening", "address", addr)

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		log.Warn("forcing api close", "error", err)
		return s.echo.Close()
	}
	return nil
}
