package model

import (
	"sync"
	"time"
)

// CaptureModel tracks whether mirroring is enabled and since when. The zero
// value is disabled and usable. UI callbacks and presenter ticks may race, so
// access is guarded.
type CaptureModel struct {
	mu      sync.Mutex
	enabled bool
	since   time.Time
}

// Enabled reports whether mirroring is currently enabled.
func (m *CaptureModel) Enabled() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// SetEnabled stores the enabled flag and stamps the transition time.
func (m *CaptureModel) SetEnabled(b bool) {
	m.SetEnabledAt(b, time.Now())
}

// SetEnabledAt is SetEnabled with an explicit clock.
func (m *CaptureModel) SetEnabledAt(b bool, now time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enabled == b {
		return
	}
	m.enabled = b
	m.since = now
}

// Since returns the time of the last enable/disable transition.
func (m *CaptureModel) Since() time.Time {
	if m == nil {
		return time.Time{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.since
}
