// Package runner supervises the long-running parts of the server.
package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"
)

// New returns the root supervisor. Supervisor events are logged at warn level.
func New(name string, shutdownTimeout time.Duration, log *zap.Logger) *suture.Supervisor {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return suture.New(name, suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn("supervisor event", zap.String("event", e.String()))
		},
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   5 * time.Second,
		Timeout:          shutdownTimeout,
	})
}

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService runs an HTTP server until the supervisor stops it.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps srv.
func NewHTTPService(srv HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: srv, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }

// RouterFactory builds a fresh router; a closed watermill router cannot be restarted.
type RouterFactory func() (*message.Router, error)

// RouterService runs watermill routers, rebuilding one after each failure.
type RouterService struct {
	build RouterFactory
}

// NewRouterService wraps build.
func NewRouterService(build RouterFactory) *RouterService {
	return &RouterService{build: build}
}

// Serve implements suture.Service.
func (s *RouterService) Serve(ctx context.Context) error {
	r, err := s.build()
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}
	if err := r.Run(ctx); err != nil {
		return fmt.Errorf("router: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (s *RouterService) String() string { return "translation-router" }
