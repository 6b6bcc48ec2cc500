package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/soocke/xr-mirror-go/config"
	"github.com/soocke/xr-mirror-go/domain/capture"
	"github.com/soocke/xr-mirror-go/domain/frame"
	"github.com/soocke/xr-mirror-go/domain/smoothing"
)

const (
	AppName    = "XR Mirror"
	AppVersion = 1
)

// Options carries construction-time settings that cannot change live.
type Options struct {
	Capture config.Capture
	// Metrics may be nil; unregistered collectors are used then.
	Metrics *capture.Metrics
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Backend    string        `json:"backend"`
	Available  bool          `json:"available"`
	Session    string        `json:"session"`
	SessionID  string        `json:"session_id,omitempty"`
	Loop       string        `json:"loop"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Eye        config.Eye    `json:"eye"`
	Smoothing  bool          `json:"smoothing"`
	Strength   int           `json:"strength"`
	History    int           `json:"history"`
	Captured   uint64        `json:"captured"`
	Dropped    uint64        `json:"dropped"`
	Errors     uint64        `json:"transient_errors"`
	AvgCapture time.Duration `json:"avg_capture_ns"`
}

// Pipeline wires source, loop, queue, smoother and presenters together and is
// the single owner of their lifecycle. Settings arrive as config.Pipeline
// values through New and Apply.
type Pipeline struct {
	log      zerolog.Logger
	source   *capture.Source
	loop     *capture.Loop
	queue    *capture.Queue
	smoother *smoothing.Smoother
	metrics  *capture.Metrics
	latest   *LatestFrame

	mu         sync.Mutex
	settings   config.Pipeline
	presenters []Presenter

	// procMu serialises the consumer stage against history resets.
	procMu   sync.Mutex
	strength atomic.Int32

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New builds a pipeline over backend and starts its consumer goroutine. The
// source is not connected yet.
func New(backend capture.Backend, settings config.Pipeline, opts Options, log zerolog.Logger) *Pipeline {
	m := opts.Metrics
	if m == nil {
		m = capture.NewMetrics(nil)
	}
	log = log.With().Str("component", "mirror").Logger()
	src := capture.NewSource(backend, capture.SourceOptions{
		AppName:    AppName,
		AppVersion: AppVersion,
		Timeout:    opts.Capture.Timeout(),
		Width:      settings.Width,
		Height:     settings.Height,
		Eye:        settings.Eye,
	}, log)
	q := capture.NewQueue(opts.Capture.QueueSize)
	q.OnDrop(m.FramesDropped.Inc)
	loop := capture.NewLoop(src, q, capture.LoopOptions{
		Interval:  opts.Capture.Interval(),
		Backoff:   opts.Capture.Backoff(),
		StopGrace: opts.Capture.StopGrace(),
	}, m, log)

	p := &Pipeline{
		log:      log,
		source:   src,
		loop:     loop,
		queue:    q,
		smoother: smoothing.New(),
		metrics:  m,
		latest:   &LatestFrame{},
		settings: settings,
	}
	p.presenters = []Presenter{p.latest}
	p.strength.Store(int32(settings.Strength()))
	loop.OnReset(p.resetHistory)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.consume(ctx)
	return p
}

// AddPresenter registers another frame consumer.
func (p *Pipeline) AddPresenter(pr Presenter) {
	p.mu.Lock()
	p.presenters = append(p.presenters, pr)
	p.mu.Unlock()
}

// Latest is the built-in newest-frame slot polled by the window.
func (p *Pipeline) Latest() *LatestFrame { return p.latest }

// Events forwards capture loop notifications (reconnect requests, errors).
func (p *Pipeline) Events() <-chan capture.Event { return p.loop.Events() }

// Available probes the backend without connecting.
func (p *Pipeline) Available() bool { return p.source.Available() }

func (p *Pipeline) Connect() error { return p.source.Connect() }

// Start begins capturing. The source must be connected.
func (p *Pipeline) Start() error {
	if !p.source.State().Live() {
		return capture.ErrNotConnected
	}
	p.loop.Start()
	return nil
}

func (p *Pipeline) Stop() error { return p.loop.Stop() }

func (p *Pipeline) Running() bool { return p.loop.Running() }

// Reconnect opens a fresh session and resumes capture, used after a lost
// session.
func (p *Pipeline) Reconnect() error {
	if err := p.Connect(); err != nil {
		return err
	}
	return p.Start()
}

// Settings returns the active value object.
func (p *Pipeline) Settings() config.Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Apply moves the pipeline to next. Strength and the enabled flag take effect
// on the next frame, an eye change restarts the blend window and a size change
// runs the stop/resize/clear/restart cycle. On a rejected size the previous
// size stays active and the error is returned.
func (p *Pipeline) Apply(next config.Pipeline) error {
	p.mu.Lock()
	prev := p.settings
	p.mu.Unlock()

	p.strength.Store(int32(next.Strength()))
	if next.Eye != prev.Eye {
		p.source.SetEye(next.Eye)
		p.ResetSmoothing()
	}
	if !next.SameResolution(prev) {
		if err := p.loop.Reconfigure(next.Width, next.Height); err != nil && !errors.Is(err, capture.ErrStopTimeout) {
			next.Width, next.Height = prev.Width, prev.Height
			p.store(next)
			return err
		}
	}
	p.store(next)
	return nil
}

func (p *Pipeline) store(s config.Pipeline) {
	p.mu.Lock()
	p.settings = s
	p.mu.Unlock()
}

// ResetSmoothing empties the blend history.
func (p *Pipeline) ResetSmoothing() {
	p.procMu.Lock()
	p.smoother.ClearHistory()
	p.procMu.Unlock()
}

// Status snapshots the pipeline for the UI and the status endpoint.
func (p *Pipeline) Status() Status {
	s := p.Settings()
	st := p.loop.Stats()
	w, h := p.source.Resolution()
	return Status{
		Backend:    p.source.BackendName(),
		Available:  p.source.Available(),
		Session:    p.source.State().String(),
		SessionID:  p.source.SessionID(),
		Loop:       st.State.String(),
		Width:      w,
		Height:     h,
		Eye:        p.source.Eye(),
		Smoothing:  s.SmoothingEnabled,
		Strength:   s.SmoothingStrength,
		History:    p.smoother.HistoryLen(),
		Captured:   st.Captured,
		Dropped:    st.Dropped,
		Errors:     st.TransientErrors,
		AvgCapture: st.AvgCapture,
	}
}

// Close stops capture, releases the session and joins the consumer. It is
// safe to call more than once.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		var errs *multierror.Error
		if err := p.loop.Stop(); err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := p.source.Disconnect(); err != nil {
			errs = multierror.Append(errs, err)
		}
		p.cancel()
		p.wg.Wait()
		p.closeErr = errs.ErrorOrNil()
	})
	return p.closeErr
}

// resetHistory runs inside Loop.Reconfigure after the queue flush.
func (p *Pipeline) resetHistory() {
	p.procMu.Lock()
	defer p.procMu.Unlock()
	p.smoother.ClearHistory()
	p.mu.Lock()
	prs := append([]Presenter(nil), p.presenters...)
	p.mu.Unlock()
	for _, pr := range prs {
		if r, ok := pr.(Resetter); ok {
			r.Reset()
		}
	}
}

func (p *Pipeline) consume(ctx context.Context) {
	defer p.wg.Done()
	for {
		it, ok := p.queue.Pop(ctx)
		if !ok {
			return
		}
		p.process(it)
	}
}

func (p *Pipeline) process(it capture.Item) {
	p.procMu.Lock()
	defer p.procMu.Unlock()
	if it.Epoch != p.queue.Epoch() {
		return
	}
	// Requested before the last eye change.
	if it.Frame.View() != p.source.View() {
		p.metrics.FramesDropped.Inc()
		return
	}
	start := time.Now()
	out, err := p.smoother.Process(it.Frame, int(p.strength.Load()))
	if err != nil {
		p.log.Error().Err(err).Uint64("seq", it.Frame.Sequence()).Msg("smoothing rejected frame")
		if errors.Is(err, smoothing.ErrDimensionMismatch) {
			p.smoother.ClearHistory()
		}
		return
	}
	p.metrics.SmoothingDuration.Observe(time.Since(start).Seconds())

	p.mu.Lock()
	prs := append([]Presenter(nil), p.presenters...)
	p.mu.Unlock()
	for _, pr := range prs {
		p.present(pr, out)
	}
	p.metrics.FramesPresented.Inc()
}

func (p *Pipeline) present(pr Presenter, fb *frame.Buffer) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("panic", fmt.Sprint(r)).Msg("presenter panicked")
		}
	}()
	pr.Present(fb)
}
