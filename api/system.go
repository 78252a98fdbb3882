package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/garnizeh/leads/pkg/repository"
)

// readyTimeout bounds the store ping behind /api/ready.
const readyTimeout = 2 * time.Second

type SystemHandler struct {
	store repository.Pinger
}

func NewSystemHandler(store repository.Pinger) *SystemHandler {
	return &SystemHandler{store: store}
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "OK", Message: "Lead Management API is running"})
}

// ReadyHandler reports whether the record store answers.
func (h *SystemHandler) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logger.Warn("store not ready", slog.Any("err", err), slog.String("request_id", RequestID(r.Context())))
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "UNAVAILABLE", Message: "Store unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "OK"})
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version, "buildTime": buildTime})
	}
}
