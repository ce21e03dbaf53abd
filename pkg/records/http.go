package records

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
)

type HTTPHandler struct {
	repo *Repository
}

func NewHTTPHandler(repo *Repository) *HTTPHandler {
	return &HTTPHandler{repo: repo}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/extractions/{id}", h.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/transcripts/{id}/extractions", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/transcripts/{id}/extractions/latest", h.handleLatest).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.repo.Get(r.Context(), mux.Vars(r)["id"])
	h.respond(w, rec, err)
}

func (h *HTTPHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	rec, err := h.repo.Latest(r.Context(), mux.Vars(r)["id"])
	h.respond(w, rec, err)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := h.repo.ListByTranscript(r.Context(), mux.Vars(r)["id"])
	if recs == nil {
		recs = []ExtractionRecord{}
	}
	h.respond(w, recs, err)
}

func (h *HTTPHandler) respond(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "extraction not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to read extraction records")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
