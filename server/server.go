// Package server assembles the echo HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Study-Buddy-University/study-buddy-backend/ai/metrics"
	"github.com/Study-Buddy-University/study-buddy-backend/internal/profile"
	apiv1 "github.com/Study-Buddy-University/study-buddy-backend/server/router/api/v1"
	"github.com/Study-Buddy-University/study-buddy-backend/server/service/chat"
	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

type Server struct {
	echoServer *echo.Echo
	profile    *profile.Profile
	store      *store.Store
}

// NewServer creates the HTTP server and registers the API routes.
func NewServer(profile *profile.Profile, st *store.Store, chatService *chat.Service, exporter *metrics.Exporter) *Server {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORS())
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
			)
			return nil
		},
	}))

	apiService := apiv1.NewAPIV1Service(profile, st, chatService, exporter)
	apiService.Register(echoServer)

	return &Server{
		echoServer: echoServer,
		profile:    profile,
		store:      st,
	}
}

// Start serves until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server started", "address", address, "mode", s.profile.Mode)
	return s.echoServer.Start(address)
}

// Shutdown stops the HTTP server gracefully and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}
