// Package server exposes the range resolution engine over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/timescope/internal/profile"
	"github.com/hrygo/timescope/server/middleware"
	"github.com/hrygo/timescope/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	logger     *slog.Logger
}

// NewServer wires the echo instance, middleware, and API routes. Store
// may be nil; history endpoints then serve empty results.
func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store, logger *slog.Logger) (*Server, error) {
	e := echo.New()
	e.Debug = true
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	limiter := middleware.NewRateLimiter()

	s := &Server{
		Profile:    profile,
		Store:      st,
		echoServer: e,
		logger:     logger,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	rangeService := NewRangeService(profile, st, logger)
	rangeService.Register(e.Group("/api/v1", limiter.Echo()))

	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate store: %w", err)
		}
	}

	return s, nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("server started", slog.String("address", address), slog.String("mode", s.Profile.Mode))

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echoServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown releases server resources.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to shutdown server", slog.Any("error", err))
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			s.logger.Error("failed to close store", slog.Any("error", err))
		}
	}
	s.logger.Info("timescope stopped properly")
}

// Echo exposes the underlying echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echoServer
}
