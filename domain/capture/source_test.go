package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/soocke/xr-mirror-go/config"
)

func newTestSource(b Backend) *Source {
	return NewSource(b, SourceOptions{Timeout: 50 * time.Millisecond}, zerolog.Nop())
}

func TestSourceConnectDefaults(t *testing.T) {
	b := newFakeBackend()
	s := newTestSource(b)
	if s.State() != StateDisconnected {
		t.Fatalf("initial state %v", s.State())
	}
	if err := s.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if s.State() != StateConnected {
		t.Fatalf("state after connect %v", s.State())
	}
	if w, h := s.Resolution(); w != 1920 || h != 1080 {
		t.Fatalf("default resolution %dx%d", w, h)
	}
	if b.appName != "XR Mirror" || b.appVersion != 1 {
		t.Fatalf("app identity %q v%d", b.appName, b.appVersion)
	}
	if s.SessionID() == "" {
		t.Fatalf("expected session id")
	}
	if err := s.Connect(); err != nil || b.connects != 1 {
		t.Fatalf("second connect should be a no-op (connects=%d, err=%v)", b.connects, err)
	}
}

func TestSourceConnectErrors(t *testing.T) {
	b := newFakeBackend()
	b.connectErr = ErrRuntimeUnavailable
	s := newTestSource(b)
	if err := s.Connect(); !errors.Is(err, ErrRuntimeUnavailable) {
		t.Fatalf("expected ErrRuntimeUnavailable, got %v", err)
	}
	b.connectErr = errors.New("driver exploded")
	err := s.Connect()
	if !errors.Is(err, ErrInitializationFailed) || !IsConnectionError(err) {
		t.Fatalf("expected ErrInitializationFailed, got %v", err)
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state after failure %v", s.State())
	}
}

func TestSourceSetResolution(t *testing.T) {
	s := newTestSource(newFakeBackend())
	if err := s.SetResolution(640, 480); !errors.Is(err, ErrUnsupportedResolution) {
		t.Fatalf("expected ErrUnsupportedResolution, got %v", err)
	}
	if err := s.SetResolution(-1, 720); !errors.Is(err, ErrUnsupportedResolution) {
		t.Fatalf("expected ErrUnsupportedResolution for negative width, got %v", err)
	}
	if err := s.SetResolution(1280, 720); err != nil {
		t.Fatalf("set 720p: %v", err)
	}
	if w, h := s.Resolution(); w != 1280 || h != 720 {
		t.Fatalf("resolution %dx%d", w, h)
	}
}

func TestSourceCaptureOne(t *testing.T) {
	b := newFakeBackend()
	s := newTestSource(b)
	if _, err := s.CaptureOne(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected before connect, got %v", err)
	}
	_ = s.Connect()
	_ = s.SetResolution(4, 2)
	s.SetEye(config.EyeLeft)
	fb, err := s.CaptureOne(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if fb.Width() != 4 || fb.Height() != 2 || len(fb.Pix()) != 32 {
		t.Fatalf("unexpected frame %dx%d (%d bytes)", fb.Width(), fb.Height(), len(fb.Pix()))
	}
	if fb.Sequence() != 1 {
		t.Fatalf("sequence %d", fb.Sequence())
	}
	if b.lastReq.Eye != config.EyeLeft {
		t.Fatalf("eye not forwarded: %v", b.lastReq.Eye)
	}
	if s.State() != StateCapturing {
		t.Fatalf("state %v", s.State())
	}
}

func TestSourceEyeChangeBumpsView(t *testing.T) {
	b := newFakeBackend()
	s := newTestSource(b)
	_ = s.Connect()
	before := s.View()
	s.SetEye(config.EyeRight)
	if s.View() != before {
		t.Fatalf("same eye bumped view")
	}
	s.SetEye(config.EyeLeft)
	if s.View() != before+1 {
		t.Fatalf("view = %d, want %d", s.View(), before+1)
	}
	fb, err := s.CaptureOne(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if fb.View() != s.View() {
		t.Fatalf("frame view %d, source view %d", fb.View(), s.View())
	}
}

func TestSourceTimeoutDegradesAndRecovers(t *testing.T) {
	b := newFakeBackend()
	s := newTestSource(b)
	_ = s.Connect()
	_ = s.SetResolution(2, 2)
	if _, err := s.CaptureOne(context.Background()); err != nil {
		t.Fatalf("first capture: %v", err)
	}
	b.setPullDelay(200 * time.Millisecond)
	start := time.Now()
	_, err := s.CaptureOne(context.Background())
	if !errors.Is(err, ErrTimeout) || !IsTransient(err) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 150*time.Millisecond {
		t.Fatalf("timeout not enforced")
	}
	if s.State() != StateReconnecting {
		t.Fatalf("state after timeout %v", s.State())
	}
	b.setPullDelay(0)
	if _, err := s.CaptureOne(context.Background()); err != nil {
		t.Fatalf("recovery capture: %v", err)
	}
	if s.State() != StateCapturing {
		t.Fatalf("state after recovery %v", s.State())
	}
}

func TestSourceSessionLost(t *testing.T) {
	b := newFakeBackend()
	b.lostAfter = 1
	s := newTestSource(b)
	_ = s.Connect()
	_ = s.SetResolution(2, 2)
	_, err := s.CaptureOne(context.Background())
	if !errors.Is(err, ErrSessionLost) || !IsTerminal(err) {
		t.Fatalf("expected ErrSessionLost, got %v", err)
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state after loss %v", s.State())
	}
	if b.disconnects != 1 {
		t.Fatalf("lost handle not released")
	}
}

func TestSourceDisconnectIdempotent(t *testing.T) {
	b := newFakeBackend()
	s := newTestSource(b)
	if err := s.Disconnect(); err != nil {
		t.Fatalf("disconnect while disconnected: %v", err)
	}
	_ = s.Connect()
	if err := s.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := s.Disconnect(); err != nil {
		t.Fatalf("second disconnect: %v", err)
	}
	if b.disconnects != 1 {
		t.Fatalf("backend disconnect called %d times", b.disconnects)
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state %v", s.State())
	}
}

func TestSourceAvailable(t *testing.T) {
	b := newFakeBackend()
	s := newTestSource(b)
	if !s.Available() {
		t.Fatalf("expected available")
	}
	b.available = false
	if s.Available() {
		t.Fatalf("expected unavailable")
	}
}
