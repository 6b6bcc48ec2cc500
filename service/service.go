// Package service assembles the capture pipeline and its non-UI consumers
// (stream hub, HTTP server, metrics) and runs them with or without a window.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/soocke/xr-mirror-go/config"
	"github.com/soocke/xr-mirror-go/domain/backend/openxr"
	"github.com/soocke/xr-mirror-go/domain/backend/screen"
	"github.com/soocke/xr-mirror-go/domain/backend/synthetic"
	"github.com/soocke/xr-mirror-go/domain/capture"
	"github.com/soocke/xr-mirror-go/domain/mirror"
	"github.com/soocke/xr-mirror-go/server"
)

var ErrUnknownBackend = errors.New("unknown capture backend")

// reconnectDelay is the first wait before a headless reconnect attempt.
const reconnectDelay = 2 * time.Second

// Services owns everything that runs behind the window.
type Services struct {
	Config   *config.Config
	Log      zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *capture.Metrics
	Pipeline *mirror.Pipeline
	Hub      *server.StreamHub
	Server   *server.Server // nil when disabled
}

// NewBackend picks the frame backend named in c.
func NewBackend(c config.Capture) (capture.Backend, error) {
	switch c.Backend {
	case config.BackendSynthetic, "":
		return synthetic.New(), nil
	case config.BackendScreen:
		var region image.Rectangle
		if c.RegionW > 0 && c.RegionH > 0 {
			region = image.Rect(c.RegionX, c.RegionY, c.RegionX+c.RegionW, c.RegionY+c.RegionH)
		}
		return screen.New(screen.Options{
			Region:         region,
			RequireRuntime: c.RequireRuntime,
			RuntimeProbe:   openxr.RuntimeAvailable,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
}

// Build wires the pipeline, stream hub, metrics and (if enabled) the HTTP
// server. Nothing runs until Run.
func Build(cfg *config.Config, log zerolog.Logger) (*Services, error) {
	backend, err := NewBackend(cfg.Capture)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := capture.NewMetrics(reg)

	s := &Services{Config: cfg, Log: log, Registry: reg, Metrics: m}
	s.Pipeline = mirror.New(backend, cfg.Pipeline(), mirror.Options{Capture: cfg.Capture, Metrics: m}, log)
	s.Hub = server.NewStreamHub(cfg.Server.StreamFPS, cfg.Server.JPEGQuality, log)
	s.Pipeline.AddPresenter(s.Hub)
	if cfg.Server.Enabled {
		s.Server = server.New(cfg.Server, s.Pipeline, s.Hub, reg, log)
	}
	if st := openxr.Probe(); st.Available {
		log.Info().Str("runtime", st.String()).Msg("openxr runtime")
	} else {
		log.Info().Str("runtime", st.String()).Msg("no openxr runtime registered")
	}
	return s, nil
}

// Run serves the stream hub and HTTP server until ctx ends.
func (s *Services) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Hub.Run(ctx)
		return nil
	})
	if s.Server != nil {
		g.Go(func() error { return s.Server.Run(ctx) })
	}
	return g.Wait()
}

// Start connects and begins capturing.
func (s *Services) Start() error {
	if !s.Pipeline.Available() {
		return capture.ErrRuntimeUnavailable
	}
	return s.Pipeline.Reconnect()
}

func (s *Services) Close() error {
	var errs *multierror.Error
	if err := s.Pipeline.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// RunHeadless mirrors without a window: it starts capture, serves the
// stream and reconnects on its own after a lost session. Failed connects are
// retried with a doubling delay capped at a minute.
func RunHeadless(ctx context.Context, s *Services) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(ctx) })
	g.Go(func() error {
		s.supervise(ctx)
		return nil
	})
	err := g.Wait()
	if cerr := s.Close(); cerr != nil {
		err = multierror.Append(err, cerr).ErrorOrNil()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Services) supervise(ctx context.Context) {
	policy := newRetryPolicy(reconnectDelay, maxRetryDelay)
	retry := time.NewTimer(0)
	defer retry.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-retry.C:
			if err := s.Start(); err != nil {
				wait, first := policy.failed(err)
				ev := s.Log.Debug()
				if first {
					ev = s.Log.Warn()
				}
				ev.Err(err).Bool("connection", capture.IsConnectionError(err)).Dur("retry_in", wait).Msg("capture start failed")
				retry.Reset(wait)
				continue
			}
			policy.succeeded()
			s.Log.Info().Str("session", s.Pipeline.Status().SessionID).Msg("mirroring")
		case ev := <-s.Pipeline.Events():
			switch ev.Kind {
			case capture.EventReconnectNeeded:
				s.Log.Warn().Err(ev.Err).Dur("retry_in", reconnectDelay).Msg("session lost")
				retry.Reset(reconnectDelay)
			case capture.EventReconfigured:
				s.Log.Info().Int("width", ev.Width).Int("height", ev.Height).Msg("output reconfigured")
			}
		}
	}
}
