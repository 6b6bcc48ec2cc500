package presenter

import (
	"math"
	"time"

	"github.com/soocke/xr-mirror-go/ui/model"
)

// MirrorEnabledModel reports whether mirroring is enabled.
type MirrorEnabledModel interface{ Enabled() bool }

// SessionView shows how long the mirror has run and the rate frames reach
// the window.
type SessionView interface {
	SetSession(session, total time.Duration, fps float64)
}

type sessionShown struct {
	session, total time.Duration
	fps            float64
}

// SessionPresenter advances the session model every tick but only touches the
// view when a displayed value changes.
type SessionPresenter struct {
	sess    *model.SessionModel
	enabled MirrorEnabledModel
	view    SessionView

	last   sessionShown
	pushed bool
}

func NewSessionPresenter(sess *model.SessionModel, enabled MirrorEnabledModel, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, enabled: enabled, view: view}
}

func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.enabled == nil || p.view == nil {
		return
	}
	p.sess.OnTick(p.enabled.Enabled(), now)
	s, t := p.sess.Values()
	cur := sessionShown{
		session: s.Truncate(time.Second),
		total:   t.Truncate(time.Second),
		fps:     math.Round(p.sess.Rate()*10) / 10,
	}
	if p.pushed && cur == p.last {
		return
	}
	p.last, p.pushed = cur, true
	p.view.SetSession(cur.session, cur.total, cur.fps)
}
