// Package cooldown suppresses repeat alerts for a (sensor, direction) key
// inside a configured wait window. Timestamps are compared as-is; system
// clock skew is not compensated.
package cooldown

import (
	"context"
	"time"
)

// DefaultWindow is the wait window used when none is configured.
const DefaultWindow = 5 * time.Minute

// Manager arms and checks the cooldown for a (sensor, direction) key.
type Manager interface {
	// Acquire atomically checks whether an alert may fire for the key and,
	// when it may, arms the cooldown. Returns false while the window from a
	// previous alert is still open.
	Acquire(ctx context.Context, sensorID, direction string, now time.Time) (bool, error)
	// Release disarms the cooldown for the key, undoing an Acquire whose
	// alert was never recorded.
	Release(ctx context.Context, sensorID, direction string) error
}

func key(sensorID, direction string) string {
	return sensorID + "|" + direction
}
