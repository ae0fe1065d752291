// Package server exposes the reconciler over HTTP.
//
//	GET  /health        liveness
//	GET  /metrics       Prometheus request metrics
//	POST /v1/reconcile  dry run: reconcile a change batch, return operations
//	POST /v1/apply      reconcile and apply a change batch downstream
//
// Request bodies are change batches in the stream event shape
// ({"Records": [...]}).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/HENNGE/lambda-container-example/internal/pipeline"
	"github.com/HENNGE/lambda-container-example/internal/stream"
)

const (
	contentTypeJSON        = "application/json"
	defaultShutdownTimeout = time.Second * 5

	// MaxBodyBytes matches the Lambda synchronous payload limit.
	MaxBodyBytes = 6 << 20
)

type iProcessor interface {
	Plan(ev stream.Event) *pipeline.Outcome
	Process(ctx context.Context, ev stream.Event) (*pipeline.Outcome, error)
}

// Server is the HTTP surface of the reconciler.
type Server struct {
	processor  iProcessor
	logger     *slog.Logger
	httpServer *http.Server
	metrics    *httpMetrics
	addr       string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server listening on addr once started.
func New(p iProcessor, addr string, opts ...Option) *Server {
	s := &Server{processor: p, addr: addr, logger: slog.Default(), metrics: newHTTPMetrics()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/reconcile", s.handleReconcile)
		r.Post("/apply", s.handleApply)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()
	s.logger.Info("HTTP server started", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("Error encoding response", "error", err)
	}
}

// readEvent decodes the request body. It writes a 400 response and
// returns false on failure.
func (s *Server) readEvent(w http.ResponseWriter, r *http.Request) (stream.Event, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("read body: "+err.Error()))
		return stream.Event{}, false
	}
	ev, err := stream.ParseEvent(data)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse(err.Error()))
		return stream.Event{}, false
	}
	return ev, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.readEvent(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, NewOutcomeResponse(s.processor.Plan(ev)))
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.readEvent(w, r)
	if !ok {
		return
	}

	out, err := s.processor.Process(r.Context(), ev)
	resp := NewOutcomeResponse(out)
	if err == nil {
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Status = StatusError
	resp.Code = string(pipeline.CodeOf(err))
	resp.Error = err.Error()
	var be *pipeline.BatchError
	if errors.As(err, &be) {
		resp.Failed = be.Failed
	}

	switch {
	case pipeline.IsMissingConfig(err):
		s.writeJSON(w, http.StatusServiceUnavailable, resp)
	case pipeline.IsApplyFailure(err):
		s.writeJSON(w, http.StatusBadGateway, resp)
	default:
		s.writeJSON(w, http.StatusInternalServerError, resp)
	}
}
