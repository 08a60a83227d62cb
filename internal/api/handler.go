// Package api exposes the tracker engine over HTTP: error ingestion,
// metrics and stats queries, alert history, a live websocket alert feed
// and JWT-guarded administration.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fattits30-dev/error-tracker/internal/db"
	"github.com/fattits30-dev/error-tracker/internal/sink"
	"github.com/fattits30-dev/error-tracker/internal/tracker"
)

type Handler struct {
	tracker   *tracker.Tracker
	store     *db.DB
	hub       *sink.Hub
	jwtSecret []byte
}

type Config struct {
	Tracker   *tracker.Tracker
	Store     *db.DB // optional: alert history endpoints 404 without it
	Hub       *sink.Hub
	JWTSecret []byte
}

func NewHandler(cfg Config) *Handler {
	return &Handler{
		tracker:   cfg.Tracker,
		store:     cfg.Store,
		hub:       cfg.Hub,
		jwtSecret: cfg.JWTSecret,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Ingestion
	mux.HandleFunc("POST /api/v1/errors", h.handleTrack)

	// Queries
	mux.HandleFunc("GET /api/v1/metrics", h.handleMetrics)
	mux.HandleFunc("GET /api/v1/stats", h.handleStats)
	mux.HandleFunc("GET /api/v1/alerts", h.handleAlerts)

	// Live alert feed
	if h.hub != nil {
		mux.Handle("GET /ws/alerts", h.hub)
	}

	// Admin endpoints
	mux.HandleFunc("POST /api/v1/admin/clear", h.adminOnly(h.handleClear))
	mux.HandleFunc("POST /api/v1/admin/cleanup", h.adminOnly(h.handleCleanup))
	mux.HandleFunc("PUT /api/v1/admin/config", h.adminOnly(h.handleConfigure))

	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}

// trackRequest is the ingestion payload. Severity arrives as a string and
// is coerced; nothing in this request can make ingestion fail.
type trackRequest struct {
	Kind      string          `json:"kind"`
	Message   string          `json:"message"`
	Severity  string          `json:"severity"`
	Location  string          `json:"location"`
	Context   tracker.Context `json:"context"`
	Timestamp time.Time       `json:"timestamp"`
}

func (h *Handler) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	h.tracker.Track(tracker.Event{
		Kind:      req.Kind,
		Message:   req.Message,
		Severity:  tracker.ParseSeverity(req.Severity),
		Location:  req.Location,
		Context:   req.Context,
		Timestamp: req.Timestamp,
	})

	// Fire-and-forget: the event is accepted for processing even if the
	// sampler or rate limiter drops it.
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	window, err := tracker.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap, err := h.tracker.Metrics(window)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, snap)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.tracker.Stats())
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "alert history not configured", http.StatusNotFound)
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	alerts, err := h.store.RecentAlerts(limit)
	if err != nil {
		slog.Error("list alerts failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []tracker.Alert{}
	}
	writeJSON(w, alerts)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	h.tracker.ClearGroups()
	slog.Info("admin cleared all groups")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed := h.tracker.Cleanup(time.Now())
	writeJSON(w, map[string]int{"removed": removed})
}

// configRequest mirrors tracker.Config with string-keyed sample rates so
// the payload reads naturally.
type configRequest struct {
	SampleRates       map[string]float64 `json:"sample_rates"`
	RateLimitWindow   string             `json:"rate_limit_window"`
	MaxEventsPerGroup int                `json:"max_events_per_group"`
	MaxEventsGlobal   int                `json:"max_events_global"`
	AlertStride       int                `json:"alert_stride"`
	AlertCooldown     string             `json:"alert_cooldown"`
	RetentionTTL      string             `json:"retention_ttl"`
	MaxSamples        int                `json:"max_samples"`
}

func (h *Handler) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	cfg := h.tracker.Config()
	if req.SampleRates != nil {
		rates := make(map[tracker.Severity]float64, len(req.SampleRates))
		for name, rate := range req.SampleRates {
			rates[tracker.ParseSeverity(name)] = rate
		}
		cfg.SampleRates = rates
	}
	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{req.RateLimitWindow, &cfg.RateLimitWindow},
		{req.AlertCooldown, &cfg.AlertCooldown},
		{req.RetentionTTL, &cfg.RetentionTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			http.Error(w, "invalid duration: "+d.raw, http.StatusBadRequest)
			return
		}
		*d.dst = parsed
	}
	if req.MaxEventsPerGroup > 0 {
		cfg.MaxEventsPerGroup = req.MaxEventsPerGroup
	}
	if req.MaxEventsGlobal > 0 {
		cfg.MaxEventsGlobal = req.MaxEventsGlobal
	}
	if req.AlertStride > 0 {
		cfg.AlertStride = req.AlertStride
	}
	if req.MaxSamples > 0 {
		cfg.MaxSamples = req.MaxSamples
	}

	h.tracker.Configure(cfg)
	slog.Info("admin updated tracker config")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}
