package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/service"
	"github.com/docdex/docdex/internal/version"
)

// Handler handles HTTP API requests.
type Handler struct {
	svc *service.Service
	log *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *service.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Search handles JSON search requests.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.jsonError(w, "query parameter 'q' is required", http.StatusBadRequest)
		return
	}

	topK := 0
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		if k, err := strconv.Atoi(kStr); err == nil && k > 0 {
			topK = k
		}
	}
	threshold := -1.0
	if tStr := r.URL.Query().Get("threshold"); tStr != "" {
		if t, err := strconv.ParseFloat(tStr, 64); err == nil && t >= 0 {
			threshold = t
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	results, err := h.svc.Query(ctx, query, topK, threshold)
	if err != nil {
		h.log.Error("search request failed", zap.Error(err))
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// Status returns index status as JSON.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.svc.Status())
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
	})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
