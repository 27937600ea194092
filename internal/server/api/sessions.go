package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/store"
)

// SessionsHandler serves the transcript history.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a SessionsHandler.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/sessions and /api/sessions/{id}
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")
	if id == "" {
		h.list(w)
		return
	}
	if strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	h.get(w, id)
}

type sessionResponse struct {
	ID        string  `json:"id"`
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at,omitempty"`
}

type wordResponse struct {
	Position    int    `json:"position"`
	Word        string `json:"word"`
	CommittedAt string `json:"committed_at"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type sessionDetailResponse struct {
	Session  sessionResponse `json:"session"`
	Words    []wordResponse  `json:"words"`
	Sentence string          `json:"sentence"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		StartedAt: s.StartedAt.Format(timeFormat),
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.Format(timeFormat)
		resp.EndedAt = &ended
	}
	return resp
}

func (h *SessionsHandler) list(w http.ResponseWriter) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SessionsHandler) get(w http.ResponseWriter, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	words, err := h.store.Words().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list words")
		return
	}

	response := sessionDetailResponse{
		Session: toSessionResponse(sess),
		Words:   make([]wordResponse, 0, len(words)),
	}
	parts := make([]string, 0, len(words))
	for _, word := range words {
		response.Words = append(response.Words, wordResponse{
			Position:    word.Position,
			Word:        word.Word,
			CommittedAt: word.CommittedAt.Format(timeFormat),
		})
		parts = append(parts, word.Word)
	}
	response.Sentence = strings.Join(parts, " ")

	writeJSON(w, http.StatusOK, response)
}
