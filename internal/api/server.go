// Package api serves the aggregate reports and load history over HTTP.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/osm-audit/internal/report"
	"github.com/sells-group/osm-audit/internal/store"
)

// LoadLister returns recent load runs.
type LoadLister interface {
	ListLoads(ctx context.Context, limit int) ([]store.LoadRun, error)
}

// Server exposes health, report, load history and metrics endpoints.
type Server struct {
	db       *sql.DB
	loads    LoadLister
	router   chi.Router
	requests *prometheus.CounterVec
	log      *zap.Logger
}

// New builds the router. Request counters are registered on reg, which is
// also what /metrics serves.
func New(db *sql.DB, loads LoadLister, reg *prometheus.Registry) *Server {
	s := &Server{
		db:    db,
		loads: loads,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osm_audit",
			Name:      "report_requests_total",
			Help:      "Report requests served by report and status code.",
		}, []string{"report", "code"}),
		log: zap.L().With(zap.String("component", "api")),
	}
	reg.MustRegister(s.requests)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/reports", s.handleListReports)
	r.Get("/reports/{name}", s.handleReport)
	r.Get("/loads", s.handleLoads)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListReports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report.Queries)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	q, ok := report.Lookup(name)
	if !ok {
		s.requests.WithLabelValues("unknown", "404").Inc()
		writeError(w, http.StatusNotFound, "unknown report "+strconv.Quote(name))
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", report.FormatJSON, report.FormatText, report.FormatXLSX:
	default:
		s.requests.WithLabelValues(name, "400").Inc()
		writeError(w, http.StatusBadRequest, "unsupported format "+strconv.Quote(format))
		return
	}

	res, err := report.RunQuery(r.Context(), s.db, q)
	if err != nil {
		s.log.Error("report failed", zap.String("report", name), zap.Error(err))
		s.requests.WithLabelValues(name, "500").Inc()
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}
	s.requests.WithLabelValues(name, "200").Inc()

	switch format {
	case report.FormatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_ = report.WriteText(w, []report.Result{res})
	case report.FormatXLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.xlsx"`)
		_ = report.WriteXLSX(w, []report.Result{res})
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleLoads(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.loads.ListLoads(r.Context(), limit)
	if err != nil {
		s.log.Error("list loads failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list loads failed")
		return
	}
	if runs == nil {
		runs = []store.LoadRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
