package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/simflow/internal/catalog"
	"github.com/gyaneshwarpardhi/simflow/internal/engine"
	"github.com/gyaneshwarpardhi/simflow/internal/event"
	"github.com/gyaneshwarpardhi/simflow/internal/index"
	"github.com/gyaneshwarpardhi/simflow/internal/metrics"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *catalog.Loader
	hub    *Hub
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *catalog.Loader, hub *Hub) http.Handler {
	h := &Handler{eng: eng, loader: loader, hub: hub, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/events", h.submitEvent)
	h.mux.HandleFunc("GET /v1/handlers", h.listHandlers)
	h.mux.HandleFunc("POST /v1/catalog/reload", h.reloadCatalog)
	h.mux.HandleFunc("GET /v1/world", h.worldSnapshot)
	h.mux.HandleFunc("GET /v1/stream", h.stream)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// submitRequest is the wire shape for event submission; the payload is
// decoded according to the declared type.
type submitRequest struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// POST /v1/events — hand an event to the engine's inbox.
func (h *Handler) submitEvent(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "event type is required")
		return
	}
	payload, err := event.DecodePayload(event.ConditionType(req.Type), req.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	ev := event.New(req.Timestamp, payload)
	ev.ID = req.ID
	if !h.eng.Submit(ev) {
		writeError(w, http.StatusTooManyRequests, "event inbox full")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"id":       req.ID,
	})
}

// GET /v1/handlers — list declared handlers from the loaded catalog.
func (h *Handler) listHandlers(w http.ResponseWriter, r *http.Request) {
	cfg := h.loader.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  cfg.Version,
		"handlers": cfg.Handlers,
	})
}

// POST /v1/catalog/reload — hot-reload the catalog from disk.
func (h *Handler) reloadCatalog(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ix, err := index.Build(cfg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.eng.SwapIndex(ix)
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded": true,
		"handlers": ix.Len(),
	})
}

// GET /v1/world — tick, flags, output tail, and live processes.
func (h *Handler) worldSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Snapshot())
}

// GET /v1/stream — upgrade to a WebSocket feed of output and warnings.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusNotImplemented, "stream disabled")
		return
	}
	h.hub.Serve(w, r)
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if the event inbox is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.InboxUtilization()
	metrics.InboxUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"inbox_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"inbox_utilization": util,
	})
}

// loggingMiddleware logs one line per request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
