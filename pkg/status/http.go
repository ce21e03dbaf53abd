package status

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
)

type HTTPHandler struct {
	tracker Tracker
}

func NewHTTPHandler(tracker Tracker) *HTTPHandler {
	return &HTTPHandler{tracker: tracker}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/transcripts/{id}/status", h.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/transcripts/{id}/status", h.handleTransition).Methods(http.MethodPut)
}

type transitionRequest struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.tracker.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeEntry(w, entry)
}

// handleTransition lets downstream reviewers move a transcript on, e.g.
// extracted -> validated.
func (h *HTTPHandler) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	to, ok := clinical.ParseStatus(req.Status)
	if !ok {
		http.Error(w, "unknown status "+req.Status, http.StatusBadRequest)
		return
	}
	entry, err := h.tracker.Transition(r.Context(), mux.Vars(r)["id"], to, req.Message)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeEntry(w, entry)
}

func (h *HTTPHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "transcript status not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		logger.Log.WithError(err).Error("status tracker failure")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeEntry(w http.ResponseWriter, entry Entry) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}
