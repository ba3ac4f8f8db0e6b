// Package server is a development task server for the tasksync client. It
// speaks the same REST protocol the sync engine expects and stores tasks in
// memory or PostgreSQL.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/existflow/tasksync/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Options configures the server
type Options struct {
	RequireAuth bool          // Guard /tasks with bearer sessions
	SessionTTL  time.Duration // Lifetime of issued tokens
}

// Server is the task server
type Server struct {
	store Store
	opts  Options
	echo  *echo.Echo
	now   func() time.Time
}

// New creates a server on top of store
func New(store Store, opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}

	s := &Server{
		store: store,
		opts:  opts,
		now:   time.Now,
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	// Health check
	e.GET("/health", s.handleHealth)

	// Auth endpoints (public)
	e.POST("/auth/login", s.handleLogin)

	tasks := e.Group("/tasks")
	if s.opts.RequireAuth {
		tasks.Use(s.authMiddleware)
	}
	tasks.GET("", s.handleListTasks)
	tasks.POST("", s.handleCreateTask)
	tasks.PUT("/:id", s.handleUpdateTask)
	tasks.DELETE("/:id", s.handleDeleteTask)

	s.echo = e
}

// requestLogger logs every request through the shared logger
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		err := next(c)

		res := c.Response()
		logger.Info("HTTP Request",
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("status", res.Status),
			logger.F("size", res.Size),
			logger.F("request_id", res.Header().Get(echo.HeaderXRequestID)),
			logger.F("duration", time.Since(start).String()))

		return err
	}
}

// Close closes the store
func (s *Server) Close() error {
	return s.store.Close()
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
