package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options HTTP server settings
type Options struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server HTTP API server
type Server struct {
	router *gin.Engine
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer creates the server with recovery and request logging
func NewServer(opts Options) *Server {
	if opts.Port == "" {
		opts.Port = "8000"
	}
	logger := log.With().Str("component", "api").Logger()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	srv := &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	return &Server{
		router: router,
		srv:    srv,
		logger: logger,
	}
}

// SetupRoutes registers every endpoint
func (s *Server) SetupRoutes(h *Handlers) {
	s.router.GET("/status", h.Status)
	s.router.GET("/health", h.HealthCheck)
	s.router.GET("/ready", h.ReadinessCheck)

	s.router.POST("/scan", h.Scan)
	s.router.POST("/signal", h.Signal)
	s.router.POST("/evaluate", h.Evaluate)

	s.router.POST("/train", h.Train)
	s.router.GET("/patterns", h.ListPatterns)
	s.router.DELETE("/patterns/:name", h.DeletePattern)

	s.router.GET("/signals", h.History)
	s.router.GET("/price/:token", h.Price)
}

// Handler the routed http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("API server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("API server stopped")
	return nil
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client", c.ClientIP()).
			Msg("Request handled")
	}
}
