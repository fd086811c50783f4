package readings

import (
	"errors"
	"time"
)

// Reading is an immutable sensor fact produced by the ingestion layer.
type Reading struct {
	SensorID   string    `json:"sensor_id"`
	CompanyID  string    `json:"company_id"`
	LocationID string    `json:"location_id"`
	SensorType string    `json:"sensor_type"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Timestamp  time.Time `json:"timestamp"`
}

// Validate checks the fields the engine cannot work without.
func (r *Reading) Validate() error {
	if r == nil {
		return errors.New("readings: nil reading")
	}
	if r.CompanyID == "" {
		return errors.New("readings: company id required")
	}
	if r.SensorID == "" {
		return errors.New("readings: sensor id required")
	}
	if r.Timestamp.IsZero() {
		return errors.New("readings: timestamp required")
	}
	return nil
}
