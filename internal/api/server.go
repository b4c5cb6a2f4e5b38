package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cutdeck/cutdeck-agent/internal/editor"
	"github.com/cutdeck/cutdeck-agent/internal/export"
	"github.com/cutdeck/cutdeck-agent/internal/library"
	"github.com/cutdeck/cutdeck-agent/internal/media"
	"github.com/cutdeck/cutdeck-agent/internal/playback"
	"github.com/cutdeck/cutdeck-agent/internal/timeline"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port         int
	ExportDir    string
	Session      *timeline.Session
	Controller   *editor.Controller
	Synchronizer *playback.Synchronizer
	Bridge       *MediaBridge
	Library      library.LibraryService
	Exporter     *export.Exporter
	Media        *media.Server
	Repository   library.Repository
	Logger       *slog.Logger
	StartTime    time.Time
	Version      string
	DeviceID     string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
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
