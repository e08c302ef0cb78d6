// Package api is the local HTTP interface of `crucible serve`.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/heimdex/crucible/internal/annotations"
	"github.com/heimdex/crucible/internal/media"
	"github.com/heimdex/crucible/internal/playback"
	"github.com/heimdex/crucible/internal/review"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Addr           string
	Service        review.ReviewService
	Repository     review.Repository
	Annotations    annotations.Repository
	PlaybackServer playback.PlaybackService
	Runner         *review.Runner
	Doctor         *media.CachedDoctor
	Logger         *slog.Logger
	StartTime      time.Time
	Version        string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
