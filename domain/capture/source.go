package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/soocke/xr-mirror-go/config"
	"github.com/soocke/xr-mirror-go/domain/frame"
)

const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

// SourceOptions configures a Source. Zero values pick defaults.
type SourceOptions struct {
	AppName    string
	AppVersion uint32
	// Timeout bounds a single Pull. Defaults to twice the 90 fps interval.
	Timeout time.Duration
	Width   int
	Height  int
	Eye     config.Eye
}

// Source owns one backend session and produces frames on request.
// All methods are safe for concurrent use; CaptureOne is expected to be
// called from a single loop goroutine.
type Source struct {
	backend Backend
	opts    SourceOptions
	log     zerolog.Logger

	mu      sync.Mutex
	state   SessionState
	handle  Handle
	width   int
	height  int
	eye     config.Eye
	view    uint64
	session string

	seq atomic.Uint64
}

// NewSource creates a disconnected source on top of backend.
func NewSource(backend Backend, opts SourceOptions, log zerolog.Logger) *Source {
	if opts.AppName == "" {
		opts.AppName = "XR Mirror"
	}
	if opts.AppVersion == 0 {
		opts.AppVersion = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second / 90
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DefaultWidth, DefaultHeight
	}
	if !opts.Eye.Valid() {
		opts.Eye = config.EyeRight
	}
	return &Source{
		backend: backend,
		opts:    opts,
		log:     log.With().Str("component", "capture-source").Str("backend", backend.Name()).Logger(),
		width:   opts.Width,
		height:  opts.Height,
		eye:     opts.Eye,
	}
}

// Available is a non-blocking, conservative check usable before Connect.
func (s *Source) Available() bool { return s.backend.ProbeAvailable() }

// Connect opens a session. Calling it while connected is a no-op.
func (s *Source) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Live() {
		return nil
	}
	s.state = StateConnecting
	h, err := s.backend.Connect(s.opts.AppName, s.opts.AppVersion)
	if err != nil {
		s.state = StateDisconnected
		if errors.Is(err, ErrRuntimeUnavailable) || errors.Is(err, ErrInitializationFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrInitializationFailed, err)
	}
	s.handle = h
	s.state = StateConnected
	s.session = uuid.NewString()
	s.log.Info().Str("session", s.session).Int("width", s.width).Int("height", s.height).Msg("connected")
	return nil
}

// SetResolution changes the target frame size. A capturing session is moved to
// Stopped; restarting is the caller's job.
func (s *Source) SetResolution(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrUnsupportedResolution, w, h)
	}
	if !s.backend.SupportsResolution(w, h) {
		return fmt.Errorf("%w: %dx%d not offered by %s", ErrUnsupportedResolution, w, h, s.backend.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCapturing || s.state == StateReconnecting {
		s.state = StateStopped
	}
	if s.width != w || s.height != h {
		s.log.Info().Int("width", w).Int("height", h).Msg("resolution changed")
	}
	s.width, s.height = w, h
	return nil
}

// SetEye changes which view is requested on the next pull. A real change
// bumps the view generation stamped on captured frames.
func (s *Source) SetEye(e config.Eye) {
	if !e.Valid() {
		return
	}
	s.mu.Lock()
	if s.eye != e {
		s.eye = e
		s.view++
	}
	s.mu.Unlock()
}

// View is the current view generation.
func (s *Source) View() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// CaptureOne pulls exactly one frame at the configured size.
func (s *Source) CaptureOne(ctx context.Context) (*frame.Buffer, error) {
	s.mu.Lock()
	if !s.state.Live() {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	if s.state == StateConnected || s.state == StateStopped {
		s.state = StateCapturing
	}
	h := s.handle
	req := PullRequest{Width: s.width, Height: s.height, Eye: s.eye}
	view := s.view
	s.mu.Unlock()

	pctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	raw, err := s.backend.Pull(pctx, h, req)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionLost):
			s.lost(h, err)
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
			s.degrade(h)
			return nil, fmt.Errorf("%w after %v", ErrTimeout, s.opts.Timeout)
		default:
			s.degrade(h)
			return nil, err
		}
	}
	if raw.Width != req.Width || raw.Height != req.Height {
		s.degrade(h)
		return nil, fmt.Errorf("capture: backend returned %dx%d, want %dx%d", raw.Width, raw.Height, req.Width, req.Height)
	}
	fb, err := frame.New(raw.Pix, raw.Width, raw.Height, time.Now())
	if err != nil {
		s.degrade(h)
		return nil, err
	}
	s.restore(h)
	return fb.WithSequence(s.seq.Add(1)).WithView(view), nil
}

// StopCapture marks an active session as idle without releasing it.
func (s *Source) StopCapture() {
	s.mu.Lock()
	if s.state == StateCapturing || s.state == StateReconnecting {
		s.state = StateStopped
	}
	s.mu.Unlock()
}

// Disconnect releases the session. It is idempotent.
func (s *Source) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return nil
	}
	h := s.handle
	s.state = StateDisconnected
	s.handle = 0
	if err := s.backend.Disconnect(h); err != nil {
		return fmt.Errorf("capture: disconnect: %w", err)
	}
	s.log.Info().Str("session", s.session).Msg("disconnected")
	return nil
}

func (s *Source) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Resolution returns the configured frame size.
func (s *Source) Resolution() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *Source) Eye() config.Eye {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eye
}

// SessionID is empty until the first successful Connect.
func (s *Source) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *Source) BackendName() string { return s.backend.Name() }

// lost drops the session if h is still current.
func (s *Source) lost(h Handle, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != h || s.state == StateDisconnected {
		return
	}
	s.state = StateDisconnected
	s.handle = 0
	if err := s.backend.Disconnect(h); err != nil {
		s.log.Debug().Err(err).Msg("release lost session")
	}
	s.log.Warn().Err(cause).Str("session", s.session).Msg("session lost")
}

func (s *Source) degrade(h Handle) {
	s.mu.Lock()
	if s.handle == h && s.state == StateCapturing {
		s.state = StateReconnecting
	}
	s.mu.Unlock()
}

func (s *Source) restore(h Handle) {
	s.mu.Lock()
	if s.handle == h && s.state == StateReconnecting {
		s.state = StateCapturing
	}
	s.mu.Unlock()
}
