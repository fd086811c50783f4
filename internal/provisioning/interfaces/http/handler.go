// Package http exposes the sensor provisioning endpoint.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	provisioning "sensoralert/internal/provisioning/application"
)

// Handler provides the provisioning HTTP endpoint.
type Handler struct {
	service *provisioning.Service
}

// NewHandler constructs a handler.
func NewHandler(service *provisioning.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("provisioning handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles POST /api/v1/provisioning/sensors.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var event provisioning.SensorCreated
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	result, err := h.service.OnSensorCreated(r.Context(), event)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}
