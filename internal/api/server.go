// Package api serves accountguard over HTTP: scans, the latest result,
// remediation batches, category recommendations, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pankaj-dahiya-devops/accountguard/internal/app"
	"github.com/pankaj-dahiya-devops/accountguard/internal/logging"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
	"github.com/pankaj-dahiya-devops/accountguard/internal/recommend"
	"github.com/pankaj-dahiya-devops/accountguard/internal/store"
)

// Service is the behaviour the HTTP surface exposes. *app.App implements it.
type Service interface {
	Scan(ctx context.Context, sources ...models.Source) (*models.AnalysisResult, error)
	Latest(ctx context.Context) (*models.AnalysisResult, error)
	Remediate(ctx context.Context, ids []string, all bool) (*models.RemediationReport, error)
}

// Server routes HTTP requests to a Service.
type Server struct {
	r      *chi.Mux
	svc    Service
	logger *slog.Logger
}

// NewServer returns a Server for svc. Metrics are served from gatherer when
// it is non-nil.
func NewServer(svc Service, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{r: chi.NewRouter(), svc: svc, logger: logging.OrDiscard(logger)}

	s.r.Use(middleware.RequestID)
	s.r.Use(s.requestLogger)
	s.r.Use(middleware.Recoverer)

	s.routes(gatherer)
	return s
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	s.r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	if gatherer != nil {
		s.r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.r.Route("/v1", func(r chi.Router) {
		r.Post("/scans", s.postScan)
		r.Get("/scans/latest", s.getLatest)
		r.Post("/remediations", s.postRemediation)
		r.Get("/recommendations/{category}", s.getRecommendations)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.r }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type scanRequest struct {
	Sources []models.Source `json:"sources"`
}

func (s *Server) postScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
	}
	for _, src := range req.Sources {
		if !slices.Contains(models.AllSources(), src) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("unknown source %q", src))
			return
		}
	}

	result, err := s.svc.Scan(r.Context(), req.Sources...)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getLatest(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Latest(r.Context())
	if errors.Is(err, store.ErrNoResult) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	sev := models.Severity(strings.ToUpper(r.URL.Query().Get("severity")))
	if sev != "" && !sev.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown severity %q", sev))
		return
	}
	var cat models.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		if cat, err = recommend.ParseCategory(raw); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if sev != "" || cat != "" {
		filtered := *result
		filtered.Issues = result.Filter(sev, cat)
		result = &filtered
	}
	writeJSON(w, http.StatusOK, result)
}

type remediationRequest struct {
	IssueIDs []string `json:"issue_ids"`
	All      bool     `json:"all"`
}

func (s *Server) postRemediation(w http.ResponseWriter, r *http.Request) {
	var req remediationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(req.IssueIDs) == 0 && !req.All {
		writeError(w, http.StatusBadRequest, errors.New("issue_ids or all is required"))
		return
	}

	report, err := s.svc.Remediate(r.Context(), req.IssueIDs, req.All)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, store.ErrNoResult):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, app.ErrUnknownIssue):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, models.ErrNoAutoFix), errors.Is(err, models.ErrActionMismatch):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) getRecommendations(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "category")
	c, err := recommend.ParseCategory(raw)
	if err != nil {
		// Unknown categories get the general advice.
		c = models.Category(raw)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category":        c,
		"recommendations": recommend.For(c),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
