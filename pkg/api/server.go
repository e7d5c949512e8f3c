// Package api is the HTTP service layer of the grid host daemon.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gridhost/internal/logger"
	"gridhost/pkg/backend"
	"gridhost/pkg/session"
	"gridhost/pkg/settings"
)

// Server is the service layer HTTP server. It is created stopped; Start
// begins serving and blocks until the context is cancelled or the
// listener fails.
type Server struct {
	server *http.Server
	host   string
	port   int

	shutdownOnce sync.Once
}

// NewServer builds the service layer from the resolved settings.
// shutdown is invoked by the shutdown endpoint.
func NewServer(set *settings.Settings, sessions *session.Manager, backends *backend.Manager, shutdown func() bool) *Server {
	router := NewRouter(sessions, backends, shutdown)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", set.Server.Host, set.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		server: server,
		host:   set.Server.Host,
		port:   set.Server.Port,
	}
}

// Start serves requests and blocks until the context is cancelled or the
// listener fails. Cancellation triggers a graceful stop.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Service layer listening", "address", s.server.Addr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("service layer failed: %w", err)
	}
}

// Stop drains the server gracefully. Safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("Service layer shutdown initiated")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("service layer shutdown error: %w", err)
		} else {
			logger.Info("Service layer stopped")
		}
	})
	return shutdownErr
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}
