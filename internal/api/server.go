// Package api serves the application wizard over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/wizard/controller"
)

// HealthChecker reports the reachability of backing stores.
type HealthChecker interface {
	Check(ctx context.Context, timeout time.Duration) (map[string]string, error)
}

// RequestObserver records per-route request latency.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
}

type Deps struct {
	Sessions  *Manager
	Programs  controller.ProgramFetcher
	Submitter controller.Submitter
	Health    HealthChecker
	Requests  RequestObserver
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

type Server struct {
	deps   Deps
	logger logger.Logger
}

func NewServer(deps Deps, log logger.Logger) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/applications", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleView)
			r.Patch("/", s.handlePatch)
			r.Delete("/", s.handleDelete)

			r.Post("/advance", s.handleAdvance)
			r.Post("/retreat", s.handleRetreat)
			r.Post("/program", s.handleLoadProgram)

			r.Post("/education", s.handleAddEducation)
			r.Put("/education/{index}", s.handleUpdateEducation)
			r.Delete("/education/{index}", s.handleRemoveEducation)

			r.Put("/experience", s.handleSetExperience)
			r.Post("/work", s.handleAddWork)
			r.Put("/work/{index}", s.handleUpdateWork)
			r.Delete("/work/{index}", s.handleRemoveWork)

			r.Put("/visa-rejection", s.handleSetVisaRejection)
			r.Post("/visa-rejection/countries", s.handleAddCountry)
			r.Delete("/visa-rejection/countries/{country}", s.handleRemoveCountry)

			r.Post("/documents/validate", s.handleValidateDocuments)
			r.Post("/documents/{slot}", s.handleUpload)
			r.Delete("/documents/{slot}/{attachmentID}", s.handleRemoveDocument)

			r.Post("/submit", s.handleSubmit)
		})
	})
	return r
}

// observe records latency by route pattern and logs each request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		if s.deps.Requests != nil {
			s.deps.Requests.ObserveRequest(r.Method, route, status, elapsed)
		}
		s.logger.Debug("request served", map[string]interface{}{
			"method":      r.Method,
			"route":       route,
			"status":      status,
			"duration_ms": elapsed.Milliseconds(),
			"requestId":   middleware.GetReqID(r.Context()),
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.deps.Sessions.Len(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	backends, err := s.deps.Health.Check(r.Context(), 2*time.Second)
	if err != nil {
		s.logger.Warn("readiness check failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "not ready",
			"backends": backends,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"backends": backends,
	})
}

func indexParam(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	return i, err == nil
}
