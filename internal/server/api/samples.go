package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/store"
)

// SamplesHandler handles labelled calibration samples.
type SamplesHandler struct {
	store *store.Store
}

// NewSamplesHandler creates a new SamplesHandler with the given store.
func NewSamplesHandler(s *store.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/samples and /api/samples/{id}
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/samples"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createSampleRequest struct {
	Label  string             `json:"label"`
	Points []detector.Point3D `json:"points"`
}

type sampleResponse struct {
	ID        string             `json:"id"`
	Label     string             `json:"label"`
	Points    []detector.Point3D `json:"points"`
	CreatedAt string             `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

func toSampleResponse(s *store.Sample) sampleResponse {
	return sampleResponse{
		ID:        s.ID,
		Label:     s.Label,
		Points:    s.Points,
		CreatedAt: s.CreatedAt.Format(timeFormat),
	}
}

// list handles GET /api/samples, optionally filtered by ?label=.
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		samples []*store.Sample
		err     error
	)
	if label := r.URL.Query().Get("label"); label != "" {
		samples, err = h.store.Samples().ListByLabel(strings.ToUpper(label))
	} else {
		samples, err = h.store.Samples().List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{Samples: make([]sampleResponse, 0, len(samples))}
	for _, s := range samples {
		response.Samples = append(response.Samples, toSampleResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/samples.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	label := strings.ToUpper(strings.TrimSpace(req.Label))
	if label == "" {
		writeError(w, http.StatusBadRequest, "Label is required")
		return
	}

	sample, err := h.store.Samples().Create(label, req.Points)
	if err != nil {
		if errors.Is(err, detector.ErrLandmarkCount) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save sample")
		return
	}

	writeJSON(w, http.StatusCreated, toSampleResponse(sample))
}

// get handles GET /api/samples/{id}.
func (h *SamplesHandler) get(w http.ResponseWriter, id string) {
	sample, err := h.store.Samples().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sample not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sample")
		return
	}
	writeJSON(w, http.StatusOK, toSampleResponse(sample))
}

// delete handles DELETE /api/samples/{id}.
func (h *SamplesHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Samples().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sample not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete sample")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
