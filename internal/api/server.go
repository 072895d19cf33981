// Package api wires the gin HTTP surface of the shorturls service. The
// endpoints only expose what the core read path produces: the latest
// aggregation, per-domain counts, and time-series data for the external
// chart renderer.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wikimedia/labs-tools-shorturls/internal/config"
	"github.com/wikimedia/labs-tools-shorturls/internal/handler"
	"github.com/wikimedia/labs-tools-shorturls/internal/logger"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Server is the HTTP server with lifecycle management.
type Server struct {
	server *http.Server
	log    logger.Logger
}

// NewServer creates the HTTP server with standard middleware and routes.
func NewServer(statsHandler *handler.StatsHandler, cfg *config.Config, log logger.Logger) *Server {
	if cfg.Service.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))

	SetupRoutes(router, statsHandler)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Service.Port),
			Handler:      router,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		},
		log: log,
	}
}

// Run starts the server and blocks until SIGINT/SIGTERM, then shuts down
// gracefully.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	s.log.Info("HTTP server started",
		logger.String("address", s.server.Addr),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		s.log.Info("Shutdown signal received",
			logger.String("signal", sig.String()),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.log.Info("HTTP server stopped gracefully")
	return nil
}
