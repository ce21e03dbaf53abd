package extraction

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
	"github.com/synaptica-ai/clinextract/pkg/common/models"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/extract", h.handleExtract).Methods(http.MethodPost)
	router.HandleFunc("/extract/compare", h.handleCompare).Methods(http.MethodPost)
	router.HandleFunc("/methods", h.handleMethods).Methods(http.MethodGet)
	router.HandleFunc("/methods/default", h.handleSetDefault).Methods(http.MethodPut)
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Log.WithError(err).Warn("invalid extraction payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *HTTPHandler) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req models.ExtractRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := h.service.Extract(r.Context(), req.TranscriptText, req.Method, clinical.UsageMode(req.UsageMode))
	status := http.StatusOK
	if result.ExtractionMethod == clinical.ResultMethodError {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

func (h *HTTPHandler) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req models.ExtractRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.service.Compare(r.Context(), req.TranscriptText, clinical.UsageMode(req.UsageMode)))
}

func (h *HTTPHandler) handleMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, methodsResponse{
		DefaultMethod: string(h.service.DefaultMethod()),
		Methods:       h.service.AvailableMethods(r.Context()),
	})
}

func (h *HTTPHandler) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	var req defaultMethodRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetDefaultMethod(req.Method); err != nil {
		if errors.Is(err, ErrUnknownMethod) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to set default extraction method")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"default_method": string(h.service.DefaultMethod())})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Warn("failed to encode response")
	}
}
