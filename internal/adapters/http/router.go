package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/filing-analyzer/internal/config"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
	"github.com/kirillkom/filing-analyzer/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg        config.Config
	analyzer   ports.FilingAnalyzer
	questioner ports.FilingQuestioner
	tables     ports.FilingTableReader
	metrics    *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	analyzer ports.FilingAnalyzer,
	questioner ports.FilingQuestioner,
	tables ports.FilingTableReader,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	return &Router{
		cfg:        cfg,
		analyzer:   analyzer,
		questioner: questioner,
		tables:     tables,
		metrics:    httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(serviceName, next)
		})
	}

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Route("/v1/filings", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		})
		r.Use(func(next http.Handler) http.Handler {
			wait := time.Duration(rt.cfg.APIBackpressureWaitMS) * time.Millisecond
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, wait)
		})

		r.Post("/analyze", rt.analyze)
		r.Post("/ask", rt.ask)
		r.Post("/tables.xlsx", rt.tablesWorkbook)
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
