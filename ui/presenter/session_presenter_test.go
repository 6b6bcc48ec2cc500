package presenter

import (
	"testing"
	"time"

	"github.com/soocke/xr-mirror-go/ui/model"
)

type mockSessionView struct {
	calls          int
	session, total time.Duration
	fps            float64
}

func (v *mockSessionView) SetSession(session, total time.Duration, fps float64) {
	v.calls++
	v.session, v.total, v.fps = session, total, fps
}

func TestSessionPresenter_PushesOnlyOnChange(t *testing.T) {
	sess := model.NewSessionModel()
	m := &mockModel{enabled: true}
	v := &mockSessionView{}
	p := NewSessionPresenter(sess, m, v)

	t0 := time.Unix(1000, 0)
	p.Tick(t0)
	if v.calls != 1 {
		t.Fatalf("first tick should push, calls=%d", v.calls)
	}
	p.Tick(t0.Add(100 * time.Millisecond))
	if v.calls != 1 {
		t.Fatalf("sub-second tick should not push, calls=%d", v.calls)
	}
	p.Tick(t0.Add(time.Second))
	if v.calls != 2 || v.session != time.Second {
		t.Fatalf("expected push of 1s, calls=%d session=%v", v.calls, v.session)
	}
	for i := 0; i < 30; i++ {
		sess.FrameShown()
	}
	p.Tick(t0.Add(1500 * time.Millisecond))
	if v.calls != 2 {
		t.Fatalf("rate window not elapsed, calls=%d", v.calls)
	}
	p.Tick(t0.Add(2 * time.Second))
	if v.calls != 3 || v.session != 2*time.Second || v.fps != 30 {
		t.Fatalf("unexpected push: calls=%d session=%v fps=%v", v.calls, v.session, v.fps)
	}

	m.enabled = false
	p.Tick(t0.Add(3 * time.Second))
	if v.fps != 0 || v.total != 3*time.Second {
		t.Fatalf("stop should zero rate and keep total: fps=%v total=%v", v.fps, v.total)
	}
}

func TestSessionPresenter_NilSafe(t *testing.T) {
	var p *SessionPresenter
	p.Tick(time.Now())
	NewSessionPresenter(nil, nil, nil).Tick(time.Now())
}
