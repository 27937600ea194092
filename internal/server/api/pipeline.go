package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/sign"
)

// Pipeline is the part of the pipeline controller the API drives.
type Pipeline interface {
	Current() pipeline.Update
	FinishWord()
	ClearWord()
	ClearSentence()
	InjectSymbol(s sign.Symbol)
}

type stateResponse struct {
	Present     bool        `json:"present"`
	Symbol      sign.Symbol `json:"symbol"`
	CurrentWord string      `json:"current_word"`
	Sentence    string      `json:"sentence"`
	Seq         uint64      `json:"seq"`
}

func toStateResponse(u pipeline.Update) stateResponse {
	return stateResponse{
		Present:     u.Event.Present,
		Symbol:      u.Event.Symbol,
		CurrentWord: u.State.CurrentWord,
		Sentence:    u.State.Sentence,
		Seq:         u.Seq,
	}
}

// StateHandler serves GET /api/state.
type StateHandler struct {
	pipeline Pipeline
}

// NewStateHandler creates a StateHandler.
func NewStateHandler(p Pipeline) *StateHandler {
	return &StateHandler{pipeline: p}
}

// ServeHTTP implements the http.Handler interface.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(h.pipeline.Current()))
}

// ControlsHandler serves POST /api/controls/{finish-word,clear-word,
// clear-sentence,inject} and answers with the resulting state.
type ControlsHandler struct {
	pipeline Pipeline
}

// NewControlsHandler creates a ControlsHandler.
func NewControlsHandler(p Pipeline) *ControlsHandler {
	return &ControlsHandler{pipeline: p}
}

type injectRequest struct {
	Symbol string `json:"symbol"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ControlsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch strings.TrimPrefix(r.URL.Path, "/api/controls/") {
	case "finish-word":
		h.pipeline.FinishWord()
	case "clear-word":
		h.pipeline.ClearWord()
	case "clear-sentence":
		h.pipeline.ClearSentence()
	case "inject":
		if !h.inject(w, r) {
			return
		}
	default:
		writeError(w, http.StatusNotFound, "Unknown control")
		return
	}

	writeJSON(w, http.StatusOK, toStateResponse(h.pipeline.Current()))
}

func (h *ControlsHandler) inject(w http.ResponseWriter, r *http.Request) bool {
	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}

	s, err := sign.ParseSymbol(req.Symbol)
	if err != nil || s == sign.None {
		writeError(w, http.StatusBadRequest, "Symbol must be a single letter A-Z")
		return false
	}

	h.pipeline.InjectSymbol(s)
	return true
}
