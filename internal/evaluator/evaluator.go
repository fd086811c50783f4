// Package evaluator classifies sensor readings against threshold bounds.
// Classification is pure: no I/O, no clock, same inputs same output.
package evaluator

import (
	"math"

	readings "sensoralert/internal/readings/domain"
	thresholds "sensoralert/internal/thresholds/domain"
)

// Status is the classification outcome of a reading.
type Status string

const (
	StatusNormal   Status = "NORMAL"
	StatusAlert    Status = "ALERT"
	StatusCritical Status = "CRITICAL"
)

// Direction tells from which side a threshold was crossed.
type Direction string

const (
	DirectionNone Direction = "NONE"
	DirectionLow  Direction = "LOW"
	DirectionHigh Direction = "HIGH"
)

// Classification is the result of evaluating one reading.
type Classification struct {
	Status       Status
	Direction    Direction
	Value        float64
	CrossedValue float64
}

// Triggers reports whether the classification should raise an alert.
func (c Classification) Triggers() bool {
	return c.Status == StatusAlert || c.Status == StatusCritical
}

// Classify maps a reading and its config to a classification. Critical
// bounds are the outermost and checked first; boundaries are inclusive.
// Reading value and bounds are rounded to the configured precision before
// comparison so float noise never flips a classification.
func Classify(reading readings.Reading, cfg thresholds.Config) Classification {
	value := round(reading.Value, cfg.Precision)
	bounds := cfg.Bounds

	criticalLow := round(bounds.CriticalLow, cfg.Precision)
	criticalHigh := round(bounds.CriticalHigh, cfg.Precision)
	alertLow := round(bounds.AlertLow, cfg.Precision)
	alertHigh := round(bounds.AlertHigh, cfg.Precision)

	switch {
	case value <= criticalLow:
		return Classification{Status: StatusCritical, Direction: DirectionLow, Value: value, CrossedValue: criticalLow}
	case value >= criticalHigh:
		return Classification{Status: StatusCritical, Direction: DirectionHigh, Value: value, CrossedValue: criticalHigh}
	case value <= alertLow:
		return Classification{Status: StatusAlert, Direction: DirectionLow, Value: value, CrossedValue: alertLow}
	case value >= alertHigh:
		return Classification{Status: StatusAlert, Direction: DirectionHigh, Value: value, CrossedValue: alertHigh}
	default:
		return Classification{Status: StatusNormal, Direction: DirectionNone, Value: value}
	}
}

func round(value float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	factor := math.Pow10(precision)
	return math.Round(value*factor) / factor
}
