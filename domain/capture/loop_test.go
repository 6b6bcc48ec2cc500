package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/soocke/xr-mirror-go/domain/frame"
)

func fastOpts() LoopOptions {
	return LoopOptions{Interval: 2 * time.Millisecond, Backoff: 5 * time.Millisecond, StopGrace: 500 * time.Millisecond}
}

func connectedSource(t *testing.T, b *fakeBackend, w, h int) *Source {
	t.Helper()
	s := NewSource(b, SourceOptions{Timeout: 100 * time.Millisecond}, zerolog.Nop())
	if err := s.SetResolution(w, h); err != nil {
		t.Fatal(err)
	}
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	return s
}

// drain consumes frames in the background, returning a stop func.
func drain(q *Queue, fn func(Item)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			it, ok := q.Pop(ctx)
			if !ok {
				return
			}
			if fn != nil {
				fn(it)
			}
		}
	}()
	return func() { cancel(); <-done }
}

func collectEvents(l *Loop, d time.Duration) []Event {
	var out []Event
	deadline := time.After(d)
	for {
		select {
		case ev := <-l.Events():
			out = append(out, ev)
		case <-deadline:
			return out
		}
	}
}

func TestLoopStartStop(t *testing.T) {
	b := newFakeBackend()
	q := NewQueue(2)
	l := NewLoop(connectedSource(t, b, 2, 2), q, fastOpts(), nil, zerolog.Nop())
	var got atomic.Int64
	stop := drain(q, func(Item) { got.Add(1) })
	defer stop()

	l.Start()
	l.Start() // no-op
	if l.State() != LoopRunning {
		t.Fatalf("state %v", l.State())
	}
	if !waitFor(time.Second, func() bool { return got.Load() >= 5 }) {
		t.Fatalf("no frames delivered")
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if l.State() != LoopIdle {
		t.Fatalf("state after stop %v", l.State())
	}
	pulls := b.pulls.Load()
	time.Sleep(20 * time.Millisecond)
	if b.pulls.Load() != pulls {
		t.Fatalf("captures continued after stop")
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if l.Stats().Captured == 0 {
		t.Fatalf("stats not recorded")
	}
}

func TestLoopPreservesCaptureOrder(t *testing.T) {
	b := newFakeBackend()
	q := NewQueue(8)
	l := NewLoop(connectedSource(t, b, 2, 2), q, fastOpts(), nil, zerolog.Nop())
	var last uint64
	var outOfOrder atomic.Bool
	var n atomic.Int64
	stop := drain(q, func(it Item) {
		if it.Frame.Sequence() <= last {
			outOfOrder.Store(true)
		}
		last = it.Frame.Sequence()
		n.Add(1)
	})
	l.Start()
	waitFor(time.Second, func() bool { return n.Load() >= 20 })
	_ = l.Stop()
	stop()
	if outOfOrder.Load() {
		t.Fatalf("frames delivered out of capture order")
	}
}

func TestLoopSessionLostEmitsSingleReconnect(t *testing.T) {
	b := newFakeBackend()
	b.setLostAfter(3)
	q := NewQueue(4)
	l := NewLoop(connectedSource(t, b, 2, 2), q, fastOpts(), nil, zerolog.Nop())
	stop := drain(q, nil)
	defer stop()

	l.Start()
	if !waitFor(time.Second, func() bool { return l.State() == LoopIdle }) {
		t.Fatalf("loop did not stop after session loss")
	}
	pulls := b.pulls.Load()
	events := collectEvents(l, 50*time.Millisecond)
	if b.pulls.Load() != pulls || pulls != 3 {
		t.Fatalf("capture attempted after loss: pulls=%d", b.pulls.Load())
	}
	reconnects := 0
	for _, ev := range events {
		if ev.Kind == EventReconnectNeeded {
			reconnects++
			if !errors.Is(ev.Err, ErrSessionLost) {
				t.Fatalf("reconnect event carries %v", ev.Err)
			}
		}
	}
	if reconnects != 1 {
		t.Fatalf("expected exactly one reconnect event, got %d", reconnects)
	}
}

func TestLoopBacksOffOnTransientErrors(t *testing.T) {
	b := newFakeBackend()
	b.pullErrs = []error{errFlaky, ErrTimeout}
	q := NewQueue(2)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	l := NewLoop(connectedSource(t, b, 2, 2), q, fastOpts(), m, zerolog.Nop())
	var got atomic.Int64
	stop := drain(q, func(Item) { got.Add(1) })
	defer stop()

	l.Start()
	if !waitFor(time.Second, func() bool { return got.Load() >= 3 }) {
		t.Fatalf("loop did not recover from transient errors")
	}
	_ = l.Stop()
	if st := l.Stats(); st.TransientErrors != 2 {
		t.Fatalf("transient errors = %d", st.TransientErrors)
	}
	if v := testutil.ToFloat64(m.CaptureErrors.WithLabelValues("timeout")); v != 1 {
		t.Fatalf("timeout metric = %v", v)
	}
	if v := testutil.ToFloat64(m.CaptureErrors.WithLabelValues("other")); v != 1 {
		t.Fatalf("other metric = %v", v)
	}
	var transient int
	for _, ev := range collectEvents(l, 20*time.Millisecond) {
		if ev.Kind == EventTransientError {
			transient++
		}
	}
	if transient != 2 {
		t.Fatalf("transient events = %d", transient)
	}
}

func TestLoopReconfigureWhileRunning(t *testing.T) {
	b := newFakeBackend()
	q := NewQueue(4)
	src := connectedSource(t, b, 4, 2)
	l := NewLoop(src, q, fastOpts(), nil, zerolog.Nop())
	var resets atomic.Int64
	l.OnReset(func() { resets.Add(1) })

	l.Start()
	waitFor(time.Second, func() bool { return q.Len() > 0 })
	if err := l.Reconfigure(2, 2); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if l.State() != LoopRunning {
		t.Fatalf("loop should be running again, got %v", l.State())
	}
	if resets.Load() != 1 {
		t.Fatalf("reset hook calls = %d", resets.Load())
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 10; i++ {
		it, ok := q.Pop(ctx)
		if !ok {
			t.Fatalf("no frames after reconfigure")
		}
		if it.Frame.Width() != 2 || it.Frame.Height() != 2 {
			t.Fatalf("old-resolution frame %dx%d delivered after reconfigure", it.Frame.Width(), it.Frame.Height())
		}
	}
	_ = l.Stop()
}

func TestLoopReconfigureWhileIdleStaysIdle(t *testing.T) {
	b := newFakeBackend()
	q := NewQueue(2)
	l := NewLoop(connectedSource(t, b, 4, 2), q, fastOpts(), nil, zerolog.Nop())
	if err := l.Reconfigure(2, 2); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if l.State() != LoopIdle {
		t.Fatalf("idle loop was started by reconfigure")
	}
	if b.pulls.Load() != 0 {
		t.Fatalf("idle reconfigure captured frames")
	}
}

func TestLoopReconfigureUnsupported(t *testing.T) {
	b := newFakeBackend()
	q := NewQueue(2)
	src := connectedSource(t, b, 4, 2)
	l := NewLoop(src, q, fastOpts(), nil, zerolog.Nop())
	l.Start()
	err := l.Reconfigure(333, 333)
	if !errors.Is(err, ErrUnsupportedResolution) {
		t.Fatalf("expected ErrUnsupportedResolution, got %v", err)
	}
	if l.State() != LoopRunning {
		t.Fatalf("loop state should be restored, got %v", l.State())
	}
	if w, h := src.Resolution(); w != 4 || h != 2 {
		t.Fatalf("resolution changed to %dx%d", w, h)
	}
	_ = l.Stop()
}

// stuckSource ignores cancellation until released.
type stuckSource struct {
	release chan struct{}
	entered chan struct{}
}

func (s *stuckSource) CaptureOne(context.Context) (*frame.Buffer, error) {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return frame.Filled(1, 1, 1, 1, 1, 1, time.Now())
}
func (s *stuckSource) SetResolution(int, int) error { return nil }
func (s *stuckSource) StopCapture()                 {}

func TestLoopStopAbandonsStuckIteration(t *testing.T) {
	src := &stuckSource{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	q := NewQueue(2)
	opts := fastOpts()
	opts.StopGrace = 30 * time.Millisecond
	l := NewLoop(src, q, opts, nil, zerolog.Nop())
	l.Start()
	<-src.entered
	if err := l.Stop(); !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("expected ErrStopTimeout, got %v", err)
	}
	if l.State() != LoopIdle {
		t.Fatalf("state %v", l.State())
	}
	close(src.release)
	time.Sleep(20 * time.Millisecond)
	if q.Len() != 0 {
		t.Fatalf("abandoned iteration published a frame")
	}
}
