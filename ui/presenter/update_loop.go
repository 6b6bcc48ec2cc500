package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates.
//
// It calls Tick/ProcessFrame on the sub-presenters and invokes a
// scheduler callback. The zero value is usable (methods are nil-safe).
type Loop struct {
	Session  *SessionPresenter
	Status   *StatusPresenter
	Settings *SettingsPresenter
	Mirror   *MirrorPresenter
	Schedule func()
}

func NewLoop(sess *SessionPresenter, status *StatusPresenter, settings *SettingsPresenter, mirror *MirrorPresenter, schedule func()) *Loop {
	return &Loop{Session: sess, Status: status, Settings: settings, Mirror: mirror, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	// Settings first so a reload is visible in the same frame.
	if l.Settings != nil {
		l.Settings.Tick()
	}
	if l.Status != nil {
		l.Status.Tick(now)
	}
	if l.Mirror != nil {
		l.Mirror.ProcessFrame()
	}
	if l.Session != nil {
		l.Session.Tick(now)
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
