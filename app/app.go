package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	tk "modernc.org/tk9.0"

	"github.com/soocke/xr-mirror-go/config"
	"github.com/soocke/xr-mirror-go/domain/capture"
	"github.com/soocke/xr-mirror-go/service"
	"github.com/soocke/xr-mirror-go/ui/presenter"
	"github.com/soocke/xr-mirror-go/ui/theme"
	"github.com/soocke/xr-mirror-go/ui/view"
)

const (
	Title   = "XR Mirror"
	Version = "1.0"
)

type app struct {
	c       *AppContainer
	log     zerolog.Logger
	tick    time.Duration
	afterID string
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewApp prepares the window around already built services.
func NewApp(cfg *config.Config, cfgPath string, svc *service.Services, log zerolog.Logger) *app {
	fps := cfg.UI.PreviewFPS
	if fps <= 0 {
		fps = 30
	}
	a := &app{
		c:    BuildContainer(cfg, cfgPath, svc, log),
		log:  log.With().Str("component", "ui").Logger(),
		tick: time.Second / time.Duration(fps),
		done: make(chan struct{}),
	}
	tk.WmProtocol(tk.App, "WM_DELETE_WINDOW", a.exitHandler)
	return a
}

// Reload hands settings re-read from disk to the window; safe from any
// goroutine.
func (a *app) Reload(cfg *config.Config) { a.c.SettingsPresenter.Reload(cfg) }

// Start builds the window, begins mirroring and blocks until it is closed.
func (a *app) Start() {
	c := a.c
	cfg := c.Config
	theme.SetDark(cfg.UI.Dark)

	w, h := cfg.Resolution.Dimensions()
	c.RootView.Build(w, h, view.Handlers{
		ToggleCapture:   c.CapturePresenter.Toggle,
		Reconnect:       c.CapturePresenter.Reconnect,
		SetResolution:   c.SettingsPresenter.SetResolution,
		SetEye:          c.SettingsPresenter.SetEye,
		ToggleSmoothing: c.SettingsPresenter.ToggleSmoothing,
		SetStrength:     c.SettingsPresenter.SetStrength,
		OpenSettings:    func() { c.Panel.Open(*c.Config) },
		PickRegion:      c.Region.OpenOrFocus,
		Exit:            a.exitHandler,
	})
	c.SettingsPresenter.Sync()
	c.RootView.MoveWindow(cfg.WindowX, cfg.WindowY)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go func() {
		defer close(a.done)
		if err := c.Services.Run(ctx); err != nil {
			a.log.Error().Err(err).Msg("stream server stopped")
		}
	}()

	if c.Services.Pipeline.Available() {
		c.CapturePresenter.Enable()
	} else {
		a.log.Warn().Err(capture.ErrRuntimeUnavailable).Msg("mirroring not started")
		c.StatusPresenter.OnUnavailable()
	}

	c.Loop = presenter.NewLoop(c.SessionPresenter, c.StatusPresenter, c.SettingsPresenter, c.MirrorPresenter, a.scheduleUpdate)
	a.scheduleUpdate()
	tk.App.Wait()
}

func (a *app) scheduleUpdate() {
	// TclAfter keeps every widget update on Tk's event loop thread.
	a.afterID = tk.TclAfter(a.tick, func() { a.c.Loop.Tick() })
}

func (a *app) exitHandler() {
	if a.afterID != "" {
		tk.TclAfterCancel(a.afterID)
	}
	a.persistWindow()
	if err := a.c.Services.Close(); err != nil {
		a.log.Warn().Err(err).Msg("shutdown")
	}
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	tk.Destroy(tk.App)
}

func (a *app) persistWindow() {
	x, y, ok := a.c.RootView.WindowPosition()
	if !ok {
		return
	}
	cfg := a.c.Config
	if cfg.WindowX == x && cfg.WindowY == y {
		return
	}
	cfg.WindowX, cfg.WindowY = x, y
	if a.c.CfgPath == "" {
		return
	}
	if err := cfg.Save(a.c.CfgPath); err != nil {
		a.log.Error().Err(err).Msg("save window position")
	}
}
