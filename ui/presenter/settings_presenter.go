package presenter

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/soocke/xr-mirror-go/config"
)

// chromeHeight is the space taken by menu and status bar above the mirror.
const chromeHeight = 40

// PipelineApplier is the settings side of the mirror pipeline.
type PipelineApplier interface {
	Apply(config.Pipeline) error
}

// WindowSizer resizes the mirror window.
type WindowSizer interface {
	ResizeWindow(w, h int)
}

// SettingsStatus receives user-visible outcomes of settings changes.
type SettingsStatus interface {
	Notify(text string)
	OnError(err error)
}

// SettingsView reflects the active settings in menus.
type SettingsView interface {
	ShowSettings(c config.Config)
}

// SettingsPresenter turns menu and hotkey actions into config changes, saves
// them and applies them to the running pipeline.
type SettingsPresenter struct {
	cfg    *config.Config
	path   string
	pipe   PipelineApplier
	window WindowSizer
	status SettingsStatus
	view   SettingsView
	log    zerolog.Logger

	mu      sync.Mutex
	pending *config.Config
}

func NewSettingsPresenter(cfg *config.Config, path string, pipe PipelineApplier, window WindowSizer, status SettingsStatus, view SettingsView, log zerolog.Logger) *SettingsPresenter {
	return &SettingsPresenter{cfg: cfg, path: path, pipe: pipe, window: window, status: status, view: view, log: log}
}

func (p *SettingsPresenter) SetResolution(r config.Resolution) {
	p.change(fmt.Sprintf("Resolution %s", r), func(c *config.Config) { c.Resolution = r })
}

func (p *SettingsPresenter) SetEye(e config.Eye) {
	p.change(fmt.Sprintf("Eye: %s", e), func(c *config.Config) { c.EyeSelection = e })
}

func (p *SettingsPresenter) ToggleSmoothing() {
	if p == nil || p.cfg == nil {
		return
	}
	on := !p.cfg.SmoothingEnabled
	p.change(fmt.Sprintf("Smoothing %s", onOff(on)), func(c *config.Config) { c.SmoothingEnabled = on })
}

func (p *SettingsPresenter) SetStrength(s int) {
	p.change(fmt.Sprintf("Smoothing strength %d", s), func(c *config.Config) {
		c.SmoothingStrength = s
		c.SmoothingEnabled = true
	})
}

// SetRegion stores the desktop region mirrored by the screen backend. It is
// read when the backend is built, so it applies on the next start.
func (p *SettingsPresenter) SetRegion(x, y, w, h int) {
	p.change("Capture region saved, applies on restart", func(c *config.Config) {
		c.Capture.RegionX, c.Capture.RegionY = x, y
		c.Capture.RegionW, c.Capture.RegionH = w, h
	})
}

// Reload queues settings read from disk by another writer. Safe to call from
// any goroutine; the change is applied on the next Tick.
func (p *SettingsPresenter) Reload(next *config.Config) {
	if p == nil || next == nil {
		return
	}
	p.mu.Lock()
	p.pending = next
	p.mu.Unlock()
}

// Tick applies a queued reload.
func (p *SettingsPresenter) Tick() {
	if p == nil || p.cfg == nil {
		return
	}
	p.mu.Lock()
	next := p.pending
	p.pending = nil
	p.mu.Unlock()
	if next == nil {
		return
	}
	if next.Pipeline() == p.cfg.Pipeline() {
		return
	}
	// Window position and process-level sections stay as they are.
	merged := p.cfg.Clone()
	merged.Resolution = next.Resolution
	merged.EyeSelection = next.EyeSelection
	merged.SmoothingEnabled = next.SmoothingEnabled
	merged.SmoothingStrength = next.SmoothingStrength
	if p.commit(merged, false) {
		p.log.Info().Str("resolution", merged.Resolution.String()).Str("eye", merged.EyeSelection.String()).Msg("settings reloaded")
		p.notify("Settings reloaded")
	}
}

// Sync pushes the current settings to the view and sizes the window.
func (p *SettingsPresenter) Sync() {
	if p == nil || p.cfg == nil {
		return
	}
	if p.view != nil {
		p.view.ShowSettings(*p.cfg)
	}
	if p.window != nil {
		w, h := p.cfg.Resolution.Dimensions()
		p.window.ResizeWindow(w, h+chromeHeight)
	}
}

func (p *SettingsPresenter) change(msg string, mutate func(*config.Config)) {
	if p == nil || p.cfg == nil {
		return
	}
	next := p.cfg.Clone()
	mutate(next)
	if err := next.Validate(); err != nil {
		p.log.Warn().Err(err).Msg("settings adjusted")
	}
	if p.commit(next, true) {
		p.notify(msg)
	}
}

// commit applies next to the pipeline and adopts it; save persists it.
func (p *SettingsPresenter) commit(next *config.Config, save bool) bool {
	prev := p.cfg.Clone()
	if p.pipe != nil {
		if err := p.pipe.Apply(next.Pipeline()); err != nil {
			p.log.Error().Err(err).Str("resolution", next.Resolution.String()).Msg("apply settings")
			if p.status != nil {
				p.status.OnError(err)
			}
			// The pipeline kept its previous size but took the rest.
			next.Resolution = prev.Resolution
			if next.Pipeline() == prev.Pipeline() {
				return false
			}
		}
	}
	*p.cfg = *next
	if save && p.path != "" {
		if err := p.cfg.Save(p.path); err != nil {
			p.log.Error().Err(err).Str("path", p.path).Msg("save settings")
		}
	}
	if p.view != nil {
		p.view.ShowSettings(*p.cfg)
	}
	if p.window != nil && next.Resolution != prev.Resolution {
		w, h := next.Resolution.Dimensions()
		p.window.ResizeWindow(w, h+chromeHeight)
	}
	return true
}

func (p *SettingsPresenter) notify(msg string) {
	if p.status != nil {
		p.status.Notify(msg)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
