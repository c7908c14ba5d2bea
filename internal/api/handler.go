// Package api provides the JSON HTTP handlers around the chat relay.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/jsylvan/foundrychat/internal/chat"
)

// Handler serves the small JSON surface next to the WebSocket endpoint.
type Handler struct {
	sm      *chat.SessionManager
	agentID string
}

// NewHandler creates a new Handler.
func NewHandler(sm *chat.SessionManager, agentID string) *Handler {
	return &Handler{sm: sm, agentID: agentID}
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

// Health reports service liveness and the active session count.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"agent_id":        h.agentID,
		"active_sessions": h.sm.Count(),
	})
}
