package thresholds

import (
	"errors"
	"fmt"
	"time"
)

// Well-known sensor type labels. HUMEDAD and PESO keep the labels the
// device fleet reports.
const (
	TypeTemperature = "TEMPERATURE"
	TypeHumidity    = "HUMEDAD"
	TypeWeight      = "PESO"
)

const (
	SeverityAlert    = "ALERT"
	SeverityCritical = "CRITICAL"
)

// ErrNotFound indicates no threshold config exists for a sensor.
var ErrNotFound = errors.New("thresholds: config not found")

// Bounds holds the acceptable range plus alert and critical bounds for one
// sensor. The invariant is
// RangeMin <= CriticalLow <= AlertLow <= AlertHigh <= CriticalHigh <= RangeMax.
type Bounds struct {
	RangeMin     float64 `json:"range_min" yaml:"range_min"`
	RangeMax     float64 `json:"range_max" yaml:"range_max"`
	AlertLow     float64 `json:"alert_low" yaml:"alert_low"`
	AlertHigh    float64 `json:"alert_high" yaml:"alert_high"`
	CriticalLow  float64 `json:"critical_low" yaml:"critical_low"`
	CriticalHigh float64 `json:"critical_high" yaml:"critical_high"`
}

// ValidationError reports which bound breaks the ordering invariant.
type ValidationError struct {
	Bound  string
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("thresholds: invalid %s: %s", e.Bound, e.Reason)
}

// Validate checks the ordering invariant and names the first offending bound.
func (b Bounds) Validate() error {
	if b.RangeMax <= b.RangeMin {
		return &ValidationError{Bound: "range_max", Reason: "range_max must be greater than range_min"}
	}
	if b.CriticalLow < b.RangeMin {
		return &ValidationError{Bound: "critical_low", Reason: "critical_low must not be below range_min"}
	}
	if b.AlertLow < b.CriticalLow {
		return &ValidationError{Bound: "alert_low", Reason: "alert_low must not be below critical_low"}
	}
	if b.AlertHigh < b.AlertLow {
		return &ValidationError{Bound: "alert_high", Reason: "alert_high must not be below alert_low"}
	}
	if b.CriticalHigh < b.AlertHigh {
		return &ValidationError{Bound: "critical_high", Reason: "critical_high must not be below alert_high"}
	}
	if b.CriticalHigh > b.RangeMax {
		return &ValidationError{Bound: "critical_high", Reason: "critical_high must not exceed range_max"}
	}
	return nil
}

// Config is the threshold configuration for one (sensor, company).
type Config struct {
	ID                  string    `json:"id"`
	CompanyID           string    `json:"company_id"`
	SensorID            string    `json:"sensor_id"`
	SensorType          string    `json:"sensor_type"`
	Unit                string    `json:"unit"`
	Precision           int       `json:"precision"`
	Bounds              Bounds    `json:"bounds"`
	Severity            string    `json:"severity"`
	ReadIntervalSeconds int       `json:"read_interval_seconds"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Validate checks config-level requirements.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("thresholds: nil config")
	}
	if c.CompanyID == "" {
		return errors.New("thresholds: company id required")
	}
	if c.SensorID == "" {
		return errors.New("thresholds: sensor id required")
	}
	if c.Precision < 0 {
		return &ValidationError{Bound: "precision", Reason: "precision must not be negative"}
	}
	return c.Bounds.Validate()
}

// ChannelConfig holds the per-config global channel switches.
type ChannelConfig struct {
	ConfigID  string    `json:"config_id"`
	CompanyID string    `json:"company_id"`
	Email     bool      `json:"email"`
	SMS       bool      `json:"sms"`
	Push      bool      `json:"push"`
	UpdatedAt time.Time `json:"updated_at"`
}
