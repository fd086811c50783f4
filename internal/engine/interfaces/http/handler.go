// Package http exposes the reading ingest endpoint.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"sensoralert/internal/engine"
	readings "sensoralert/internal/readings/domain"
)

// IngestHandler accepts sensor readings and feeds them to the engine.
type IngestHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(eng *engine.Engine, logger *zap.Logger) (*IngestHandler, error) {
	if eng == nil {
		return nil, errors.New("ingest handler: nil engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestHandler{engine: eng, logger: logger}, nil
}

type ingestRequest struct {
	SensorID   string  `json:"sensor_id"`
	CompanyID  string  `json:"company_id"`
	LocationID string  `json:"location_id,omitempty"`
	SensorType string  `json:"sensor_type"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit,omitempty"`
	Timestamp  string  `json:"timestamp,omitempty"`
}

// ServeHTTP handles POST /ingest/readings.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	reading := readings.Reading{
		SensorID:   req.SensorID,
		CompanyID:  req.CompanyID,
		LocationID: req.LocationID,
		SensorType: req.SensorType,
		Value:      req.Value,
		Unit:       req.Unit,
	}
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			http.Error(w, "timestamp must be RFC3339", http.StatusBadRequest)
			return
		}
		reading.Timestamp = parsed.UTC()
	}

	result, err := h.engine.SubmitReading(r.Context(), reading)
	if err != nil {
		h.logger.Warn("reading rejected",
			zap.String("sensor_id", req.SensorID),
			zap.Error(err),
		)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(result)
}
