// Package server exposes the sync daemon's health, status and metrics over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(runs *RunManager, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(zapLoggerMiddleware(logger))

	h := &handlers{runs: runs, logger: logger, started: time.Now()}

	r.Get("/healthz", h.health)
	r.Get("/status", h.status)
	r.Post("/runs", h.trigger)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
			next.ServeHTTP(w, r)
		})
	}
}

type handlers struct {
	runs    *RunManager
	logger  *zap.Logger
	started time.Time
}

type statusResponse struct {
	Status  string     `json:"status"`
	Running bool       `json:"running"`
	Runs    int        `json:"runs"`
	UpSince time.Time  `json:"upSince"`
	LastRun *RunReport `json:"lastRun,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:  "ok",
		Running: h.runs.IsRunning(),
		Runs:    h.runs.Runs(),
		UpSince: h.started,
		LastRun: h.runs.Last(),
	}
	if resp.LastRun != nil && resp.LastRun.Failed > 0 {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) trigger(w http.ResponseWriter, r *http.Request) {
	err := h.runs.Trigger("http")
	if errors.Is(err, ErrRunInProgress) {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "busy", "message": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
