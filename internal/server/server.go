package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/luca-ts/impostor-backend/internal/config"
	"github.com/luca-ts/impostor-backend/internal/game"
)

// Server ties the HTTP surface to the game engine.
type Server struct {
	cfg    config.Config
	engine *game.Engine
	http   *http.Server
}

func NewServer(cfg config.Config, engine *game.Engine) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
	}
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      s.RegisterRoutes(),
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight HTTP requests. Websocket connections are closed
// by their read loops when the process exits.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
