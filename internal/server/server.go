// Package server exposes exam generation over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/examgen/internal/generation"
	"github.com/abhisek/examgen/internal/identity"
	"github.com/abhisek/examgen/internal/ratelimit"
	"github.com/abhisek/examgen/internal/store"
)

// Generator runs one exam generation.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
}

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Generator Generator
	Documents store.DocumentRepo
	Exams     store.ExamRepo
	Limiter   *ratelimit.Middleware
	Auth      *identity.Verifier
	// Health is called by /healthz. Nil always reports healthy.
	Health func(ctx context.Context) error
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// New creates a Server.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{deps: deps, logger: logger}
}

// Routes returns the router with all endpoints mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.deps.Auth.Attach)

		api := s.deps.Limiter.Limit(ratelimit.ClassAPI)
		upload := s.deps.Limiter.Limit(ratelimit.ClassUpload)

		r.With(api, s.deps.Auth.Require).Post("/generate", s.handleGenerate)
		r.With(api, s.deps.Auth.Require).Get("/exams/{id}", s.handleGetExam)
		r.With(upload, s.deps.Auth.Require).Post("/documents", s.handleCreateDocument)
	})

	return r
}

// requestLogger logs one line per request at debug, or info for errors.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelInfo
		}
		s.logger.Log(r.Context(), level, "http request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	})
}

// NewHTTPServer builds an http.Server with the project's timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
