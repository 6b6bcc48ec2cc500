package model

import (
	"testing"
	"time"
)

func TestStatusModel_HideAfter(t *testing.T) {
	m := NewStatusModel("Initializing...")
	txt, vis, changed := m.Take()
	if txt != "Initializing..." || !vis || !changed {
		t.Fatalf("initial take: %q %v %v", txt, vis, changed)
	}
	if _, _, changed = m.Take(); changed {
		t.Fatalf("second take should report no change")
	}

	base := time.Unix(100, 0)
	m.Show("Connected - starting capture...")
	m.HideAfter(base, 2*time.Second)
	m.OnTick(base.Add(time.Second))
	if _, vis, _ = m.Take(); !vis {
		t.Fatalf("hidden too early")
	}
	m.OnTick(base.Add(2 * time.Second))
	txt, vis, changed = m.Take()
	if vis || !changed {
		t.Fatalf("expected hidden after deadline: vis=%v changed=%v", vis, changed)
	}
	if txt != "Connected - starting capture..." {
		t.Fatalf("text should be kept, got %q", txt)
	}
}

func TestStatusModel_ShowCancelsHide(t *testing.T) {
	m := NewStatusModel("")
	base := time.Unix(0, 0)
	m.Show("ok")
	m.HideAfter(base, time.Second)
	m.Show("Capture error: session lost")
	m.OnTick(base.Add(5 * time.Second))
	if txt, vis, _ := m.Take(); !vis || txt != "Capture error: session lost" {
		t.Fatalf("error text must stay visible, got %q vis=%v", txt, vis)
	}
}

func TestCaptureModel_Since(t *testing.T) {
	var m CaptureModel
	at := time.Unix(42, 0)
	m.SetEnabledAt(true, at)
	m.SetEnabledAt(true, at.Add(time.Minute))
	if !m.Enabled() || !m.Since().Equal(at) {
		t.Fatalf("repeated enable must not restamp: %v", m.Since())
	}
	m.SetEnabledAt(false, at.Add(time.Hour))
	if m.Enabled() || !m.Since().Equal(at.Add(time.Hour)) {
		t.Fatalf("disable should stamp transition")
	}
}
