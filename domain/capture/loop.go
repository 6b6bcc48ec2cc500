package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/soocke/xr-mirror-go/domain/frame"
)

const (
	DefaultInterval  = time.Second / 90
	DefaultBackoff   = 100 * time.Millisecond
	DefaultStopGrace = 2 * time.Second

	statsLogInterval = 5 * time.Second
	eventBuffer      = 32
)

// FrameSource is the part of Source the loop drives.
type FrameSource interface {
	CaptureOne(ctx context.Context) (*frame.Buffer, error)
	SetResolution(w, h int) error
	StopCapture()
}

// LoopOptions tunes cadence and shutdown. Zero values pick defaults.
type LoopOptions struct {
	Interval  time.Duration
	Backoff   time.Duration
	StopGrace time.Duration
}

// Stats summarises loop behaviour for instrumentation.
type Stats struct {
	State           LoopState
	Captured        uint64
	TransientErrors uint64
	Dropped         uint64
	AvgCapture      time.Duration
	LastFrame       time.Time
}

// Loop pulls frames from a FrameSource on its own goroutine at a fixed cadence
// and publishes them to a Queue. Start, Stop and Reconfigure are serialised.
type Loop struct {
	src     FrameSource
	out     *Queue
	opts    LoopOptions
	log     zerolog.Logger
	errLog  zerolog.Logger
	metrics *Metrics
	events  chan Event

	mu      sync.Mutex
	state   atomic.Int32
	cancel  context.CancelFunc
	done    chan struct{}
	onReset func()

	captured     atomic.Uint64
	transient    atomic.Uint64
	captureNanos atomic.Uint64
	lastFrame    atomic.Int64
}

// NewLoop creates an idle loop. metrics may be nil.
func NewLoop(src FrameSource, out *Queue, opts LoopOptions, metrics *Metrics, log zerolog.Logger) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	l := &Loop{
		src:     src,
		out:     out,
		opts:    opts,
		log:     log.With().Str("component", "capture-loop").Logger(),
		metrics: metrics,
		events:  make(chan Event, eventBuffer),
	}
	// A stalled backend fails every backoff period; keep the log readable.
	l.errLog = l.log.Sample(&zerolog.BurstSampler{Burst: 3, Period: 5 * time.Second})
	return l
}

// OnReset registers a hook run by Reconfigure after the queue is flushed and
// before the loop restarts. The mirror pipeline clears smoother history here.
func (l *Loop) OnReset(fn func()) {
	l.mu.Lock()
	l.onReset = fn
	l.mu.Unlock()
}

// Events delivers lifecycle and error notifications. Non-critical events are
// dropped when nobody reads them.
func (l *Loop) Events() <-chan Event { return l.events }

func (l *Loop) State() LoopState { return LoopState(l.state.Load()) }

func (l *Loop) Running() bool { return l.State() == LoopRunning }

// Start launches the loop. It is a no-op while running.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.startLocked() {
		l.emit(Event{Kind: EventStarted})
	}
}

// Stop cancels the loop and waits up to the grace period for it to exit.
// ErrStopTimeout means the iteration was abandoned; its frame, if any, can no
// longer reach the queue.
func (l *Loop) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	wasActive := l.cancel != nil
	err := l.stopLocked()
	if wasActive {
		l.emit(Event{Kind: EventStopped, Err: err})
	}
	return err
}

// Reconfigure changes the capture size: stop, resize the source, drop queued
// frames, run the reset hook, then restart only if the loop was running.
// Once it returns no frame of the previous size is delivered.
func (l *Loop) Reconfigure(w, h int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	wasRunning := l.State() == LoopRunning
	stopErr := l.stopLocked()
	err := l.src.SetResolution(w, h)
	l.out.Flush()
	if l.onReset != nil {
		l.onReset()
	}
	if wasRunning {
		l.startLocked()
	}
	if err != nil {
		l.log.Warn().Err(err).Int("width", w).Int("height", h).Msg("reconfigure rejected")
		return err
	}
	l.emit(Event{Kind: EventReconfigured, Width: w, Height: h})
	return stopErr
}

// Stats returns counters since construction.
func (l *Loop) Stats() Stats {
	captured := l.captured.Load()
	var avg time.Duration
	if captured > 0 {
		avg = time.Duration(l.captureNanos.Load() / captured)
	}
	var last time.Time
	if ns := l.lastFrame.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		State:           l.State(),
		Captured:        captured,
		TransientErrors: l.transient.Load(),
		Dropped:         l.out.Dropped(),
		AvgCapture:      avg,
		LastFrame:       last,
	}
}

func (l *Loop) startLocked() bool {
	if l.State() == LoopRunning {
		return false
	}
	if l.cancel != nil {
		// Previous run ended on its own (lost session); reap it.
		_ = l.stopLocked()
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel, l.done = cancel, done
	l.state.Store(int32(LoopRunning))
	l.metrics.setRunning(true)
	go l.run(ctx, done, l.out.Epoch())
	l.log.Debug().Dur("interval", l.opts.Interval).Msg("loop started")
	return true
}

func (l *Loop) stopLocked() error {
	if l.cancel == nil {
		return nil
	}
	l.state.CompareAndSwap(int32(LoopRunning), int32(LoopStopping))
	l.cancel()
	var err error
	select {
	case <-l.done:
	case <-time.After(l.opts.StopGrace):
		err = ErrStopTimeout
		l.out.Flush()
		l.log.Error().Dur("grace", l.opts.StopGrace).Msg("capture iteration abandoned")
	}
	l.cancel, l.done = nil, nil
	l.src.StopCapture()
	l.state.Store(int32(LoopIdle))
	l.metrics.setRunning(false)
	return err
}

func (l *Loop) run(ctx context.Context, done chan struct{}, epoch uint64) {
	defer close(done)
	statsTicker := time.NewTicker(statsLogInterval)
	defer statsTicker.Stop()
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	next := time.Now()
	for {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		fb, err := l.src.CaptureOne(ctx)
		if ctx.Err() != nil {
			return
		}
		var wait time.Duration
		switch {
		case err == nil:
			elapsed := time.Since(start)
			l.captured.Add(1)
			l.captureNanos.Add(uint64(elapsed.Nanoseconds()))
			l.lastFrame.Store(fb.Timestamp().UnixNano())
			l.metrics.observeCapture(elapsed)
			if !l.out.Push(fb, epoch) {
				return
			}
			next = next.Add(l.opts.Interval)
			if now := time.Now(); next.Before(now) {
				// Behind schedule: skip missed ticks rather than burst.
				next = now
			}
			wait = time.Until(next)
		case IsTerminal(err):
			l.metrics.observeError(err)
			l.log.Error().Err(err).Msg("capture session ended, reconnect required")
			if l.state.CompareAndSwap(int32(LoopRunning), int32(LoopIdle)) {
				l.metrics.setRunning(false)
				l.emit(Event{Kind: EventReconnectNeeded, Err: err})
			}
			return
		default:
			l.transient.Add(1)
			l.metrics.observeError(err)
			l.errLog.Warn().Err(err).Str("kind", errorKind(err)).Msg("capture failed, backing off")
			l.emit(Event{Kind: EventTransientError, Err: err})
			wait = l.opts.Backoff
			next = time.Now().Add(wait)
		}

		select {
		case <-statsTicker.C:
			l.logStats()
		default:
		}
		if wait <= 0 {
			continue
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (l *Loop) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	for {
		select {
		case l.events <- ev:
			return
		default:
		}
		if !ev.critical() {
			l.log.Debug().Str("event", ev.Kind.String()).Msg("event dropped, no reader")
			return
		}
		select {
		case old := <-l.events:
			l.log.Debug().Str("event", old.Kind.String()).Msg("event evicted")
		default:
		}
	}
}

func (l *Loop) logStats() {
	st := l.Stats()
	l.log.Info().
		Str("captured", humanize.Comma(int64(st.Captured))).
		Uint64("transient_errors", st.TransientErrors).
		Uint64("dropped", st.Dropped).
		Float64("avg_capture_ms", float64(st.AvgCapture)/float64(time.Millisecond)).
		Msg("capture stats")
}
