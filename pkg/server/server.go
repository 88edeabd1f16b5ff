// Package server exposes the partition layout engine over HTTP.
//
// The API is stateless: every request builds its own table from the CSV it
// carries, applies one operation and returns the laid-out result. Tables
// are never shared between requests.
//
//	GET  /healthz                 liveness and build version
//	GET  /metrics                 Prometheus metrics (when enabled)
//	GET  /v1/presets              preset names and descriptions (JSON)
//	GET  /v1/presets/{name}       a preset laid out for the device (CSV)
//	POST /v1/layout               lay out the CSV body
//	GET  /v1/layout?partitions=   lay out a share URL payload
//	POST /v1/resize?name=&size=   resize one partition of the CSV body
//
// Layout endpoints accept the query parameters flash (flash size) and
// table_offset (partition table location) using the CSV literal syntax.
// Flash sizes above 128 MiB are rejected.
// Responses are CSV unless the request sends Accept: application/json.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/partplan/pkg/buildinfo"
	"github.com/matzehuels/partplan/pkg/errors"
	"github.com/matzehuels/partplan/pkg/observability"
	"github.com/matzehuels/partplan/pkg/partition"
	"github.com/matzehuels/partplan/pkg/preset"
)

// maxBodySize bounds CSV request bodies.
const maxBodySize = 1 << 20

// maxFlashSize bounds the flash query parameter. Resizing steps through the
// flash one alignment unit at a time, so request cost grows with capacity.
const maxFlashSize = 128 * partition.MiB

// Server serves the HTTP API.
type Server struct {
	dev     partition.Device
	presets *preset.Registry
	logger  *log.Logger
	metrics *observability.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and engine event logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics enables the /metrics endpoint and feeds request and engine
// events into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a server laying out tables for dev by default.
func New(dev partition.Device, presets *preset.Registry, opts ...Option) *Server {
	s := &Server{dev: dev, presets: presets, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/presets", s.handleListPresets)
		r.Get("/presets/{name}", s.handleGetPreset)
		r.Post("/layout", s.handleLayout)
		r.Get("/layout", s.handleSharedLayout)
		r.Post("/resize", s.handleResize)
	})
	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.logger.Info("request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"duration", elapsed.Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, ww.Status(), elapsed)
		}
	})
}

// hooks returns the table hooks for one request.
func (s *Server) hooks() observability.TableHooks {
	logHooks := observability.NewLogHooks(s.logger)
	if s.metrics == nil {
		return logHooks
	}
	return observability.MultiHooks{logHooks, s.metrics}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusFor(err), errorResponse{Code: code, Message: errors.UserMessage(err)})
}

// statusFor maps error codes to HTTP statuses.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound, errors.ErrCodeUnknownPreset:
		return http.StatusNotFound
	case errors.ErrCodeUnsatisfiable, errors.ErrCodeOutOfRange:
		return http.StatusUnprocessableEntity
	}
	if errors.IsValidation(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
