package model

import (
	"time"
)

// SessionModel tracks the current mirroring session, the accumulated
// mirroring time and the displayed frame rate. It is decoupled from the UI;
// presenters should poll Values() and update views. The zero value is ready
// to use.
type SessionModel struct {
	active              bool
	captureStart        time.Time
	lastSessionDuration time.Duration
	accumulated         time.Duration

	rateFrom   time.Time
	rateFrames uint64
	shown      uint64
	rate       float64
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick updates the model using the current mirroring state and timestamp.
// Call periodically (for example, from a presenter tick).
func (m *SessionModel) OnTick(capturing bool, now time.Time) {
	if m == nil {
		return
	}
	if capturing {
		if !m.active { // off -> on
			m.active = true
			m.captureStart = now
			m.lastSessionDuration = 0
			m.rateFrom, m.rateFrames, m.rate = now, m.shown, 0
		}
		m.lastSessionDuration = now.Sub(m.captureStart)
		if el := now.Sub(m.rateFrom); el >= time.Second {
			m.rate = float64(m.shown-m.rateFrames) / el.Seconds()
			m.rateFrom, m.rateFrames = now, m.shown
		}
	} else if m.active { // on -> off
		m.lastSessionDuration = now.Sub(m.captureStart)
		m.accumulated += m.lastSessionDuration
		m.active = false
		m.rate = 0
	}
}

// FrameShown counts one frame drawn in the window.
func (m *SessionModel) FrameShown() {
	if m != nil {
		m.shown++
	}
}

// Values returns the current session duration and the total accumulated duration.
// The total includes the ongoing session when active.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	session = m.lastSessionDuration
	total = m.accumulated
	if m.active {
		total += session
	}
	return
}

// Rate is the displayed frames per second over the last full second.
func (m *SessionModel) Rate() float64 {
	if m == nil {
		return 0
	}
	return m.rate
}
