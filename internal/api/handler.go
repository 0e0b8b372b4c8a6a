// Package api provides the admin HTTP handlers: team status and
// transcript queries.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chorus-irc/chorus/internal/bot"
	"github.com/chorus-irc/chorus/internal/store"
)

// StatusProvider reports the state of every supervised session.
type StatusProvider interface {
	Status() []bot.Status
}

// Handler provides the admin API endpoints.
type Handler struct {
	team StatusProvider
	repo store.Repository // nil when the transcript archive is disabled
}

// NewHandler creates a new Handler. repo may be nil.
func NewHandler(team StatusProvider, repo store.Repository) *Handler {
	return &Handler{team: team, repo: repo}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes mounts the admin endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/status", h.handleStatus)
	r.Get("/api/transcript", h.handleTranscript)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"bots": h.team.Status(),
	})
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		Error(w, http.StatusNotFound, "transcript archive is disabled")
		return
	}

	channel := r.URL.Query().Get("channel")
	if channel == "" {
		Error(w, http.StatusBadRequest, "channel query parameter is required")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			Error(w, http.StatusBadRequest, "limit must be an integer in [1, 1000]")
			return
		}
		limit = n
	}

	messages, err := h.repo.RecentMessages(r.Context(), channel, limit)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to query transcript")
		return
	}
	if messages == nil {
		messages = []*store.Message{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"channel":  channel,
		"messages": messages,
	})
}
