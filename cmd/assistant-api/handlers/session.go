package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigdipper/sales-assistant/internal/observability"
	"github.com/bigdipper/sales-assistant/internal/session"
)

// SessionHandler handles session lifecycle requests.
type SessionHandler struct {
	logger   *observability.Logger
	sessions *session.Manager
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(logger *observability.Logger, sessions *session.Manager) *SessionHandler {
	return &SessionHandler{logger: logger, sessions: sessions}
}

// SessionDTO represents a created session.
type SessionDTO struct {
	SessionID string `json:"sessionId"`
}

// TurnDTO represents one transcript entry.
type TurnDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryDTO represents a session transcript.
type HistoryDTO struct {
	SessionID string    `json:"sessionId"`
	Turns     []TurnDTO `json:"turns"`
}

// Create handles POST /api/v1/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(SessionDTO{SessionID: sess.ID}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// Delete handles DELETE /api/v1/sessions/{sessionId}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required", "")
		return
	}

	h.sessions.Clear(id)
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /api/v1/sessions/{sessionId}/history.
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required", "")
		return
	}

	turns, err := h.sessions.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found", "")
			return
		}
		h.logger.Error().Err(err).Str("session_id", id).Msg("Failed to load history")
		writeError(w, http.StatusInternalServerError, "failed to load history", err.Error())
		return
	}

	dto := HistoryDTO{SessionID: id, Turns: make([]TurnDTO, 0, len(turns))}
	for _, t := range turns {
		dto.Turns = append(dto.Turns, TurnDTO{Role: t.Role, Content: t.Content, CreatedAt: t.CreatedAt})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
