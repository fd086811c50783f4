package cooldown

import (
	"context"
	"sync"
	"time"
)

// MemoryManager keeps last-alert timestamps in process memory. Check and
// arm happen under one lock, so two near-simultaneous readings cannot both
// pass.
type MemoryManager struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
}

// NewMemoryManager constructs an in-memory manager.
func NewMemoryManager(window time.Duration) *MemoryManager {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryManager{window: window, last: make(map[string]time.Time)}
}

// Acquire implements Manager.
func (m *MemoryManager) Acquire(_ context.Context, sensorID, direction string, now time.Time) (bool, error) {
	if m == nil {
		return false, nil
	}
	k := key(sensorID, direction)
	now = now.UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.last[k]; ok && now.Sub(last) < m.window {
		return false, nil
	}
	m.last[k] = now
	m.prune(now)
	return true, nil
}

// Release implements Manager.
func (m *MemoryManager) Release(_ context.Context, sensorID, direction string) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	delete(m.last, key(sensorID, direction))
	m.mu.Unlock()
	return nil
}

// prune drops expired entries. Callers hold the lock.
func (m *MemoryManager) prune(now time.Time) {
	for k, last := range m.last {
		if now.Sub(last) >= m.window {
			delete(m.last, k)
		}
	}
}
