// Package http exposes threshold configuration endpoints.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	thresholdapp "sensoralert/internal/thresholds/application"
	thresholds "sensoralert/internal/thresholds/domain"
)

// Handler provides threshold HTTP endpoints.
type Handler struct {
	store *thresholdapp.Store
}

// NewHandler constructs a handler.
func NewHandler(store *thresholdapp.Store) (*Handler, error) {
	if store == nil {
		return nil, errors.New("thresholds handler: nil store")
	}
	return &Handler{store: store}, nil
}

type updateRequest struct {
	Bounds    thresholds.Bounds `json:"bounds"`
	Precision int               `json:"precision"`
}

// ServeHTTP handles /api/v1/sensors/{sensor_id}/thresholds.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sensorID, ok := sensorFromPath(r.URL.Path)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		http.Error(w, "company_id is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, companyID, sensorID)
	case http.MethodPut:
		h.handleUpdate(w, r, companyID, sensorID)
	case http.MethodDelete:
		h.handleDisable(w, r, companyID, sensorID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, companyID, sensorID string) {
	cfg, err := h.store.GetThresholds(r.Context(), companyID, sensorID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, cfg)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, companyID, sensorID string) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	cfg, err := h.store.SetThresholds(r.Context(), companyID, sensorID, req.Bounds, req.Precision)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, cfg)
}

func (h *Handler) handleDisable(w http.ResponseWriter, r *http.Request, companyID, sensorID string) {
	if err := h.store.Disable(r.Context(), companyID, sensorID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondError(w http.ResponseWriter, err error) {
	var validation *thresholds.ValidationError
	if errors.As(err, &validation) {
		http.Error(w, validation.Error(), http.StatusUnprocessableEntity)
		return
	}
	if errors.Is(err, thresholds.ErrNotFound) {
		http.Error(w, "threshold config not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func sensorFromPath(path string) (string, bool) {
	trimmed := strings.TrimPrefix(path, "/api/v1/sensors/")
	if trimmed == path {
		return "", false
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "thresholds" {
		return "", false
	}
	return parts[0], true
}
