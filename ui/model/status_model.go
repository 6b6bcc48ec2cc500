package model

import "time"

// StatusModel holds the status line shown over the mirror. A message can be
// given a deadline after which it is hidden; errors stay until replaced.
type StatusModel struct {
	text    string
	visible bool
	hideAt  time.Time
	dirty   bool
}

func NewStatusModel(initial string) *StatusModel {
	return &StatusModel{text: initial, visible: true, dirty: true}
}

// Show displays text until the next Show or HideAfter.
func (m *StatusModel) Show(text string) {
	if m == nil {
		return
	}
	if m.text == text && m.visible && m.hideAt.IsZero() {
		return
	}
	m.text, m.visible, m.hideAt, m.dirty = text, true, time.Time{}, true
}

// HideAfter keeps the current text visible until now+d.
func (m *StatusModel) HideAfter(now time.Time, d time.Duration) {
	if m == nil || !m.visible {
		return
	}
	m.hideAt = now.Add(d)
}

// OnTick applies a pending hide deadline.
func (m *StatusModel) OnTick(now time.Time) {
	if m == nil || !m.visible || m.hideAt.IsZero() {
		return
	}
	if !now.Before(m.hideAt) {
		m.visible, m.hideAt, m.dirty = false, time.Time{}, true
	}
}

// Take returns the current text and visibility, and whether either changed
// since the last call.
func (m *StatusModel) Take() (text string, visible, changed bool) {
	if m == nil {
		return "", false, false
	}
	changed = m.dirty
	m.dirty = false
	return m.text, m.visible, changed
}
