package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Config holds the persisted user settings plus runtime tuning for capture,
// the stream server and the window. Keys are snake_case in the settings file;
// every field may also be overridden with an XRMIRROR_ prefixed variable.
type Config struct {
	Debug bool `json:"debug" fig:"debug"`

	Resolution        Resolution `json:"resolution" fig:"resolution"`
	EyeSelection      Eye        `json:"eye_selection" fig:"eye_selection"`
	SmoothingEnabled  bool       `json:"smoothing_enabled" fig:"smoothing_enabled"`
	SmoothingStrength int        `json:"smoothing_strength" fig:"smoothing_strength"`

	// Last window position, restored on start.
	WindowX int `json:"window_x" fig:"window_x"`
	WindowY int `json:"window_y" fig:"window_y"`

	Capture Capture `json:"capture" fig:"capture"`
	Server  Server  `json:"server" fig:"server"`
	UI      UI      `json:"ui" fig:"ui"`
}

// Capture tunes the acquisition loop and picks the frame backend.
type Capture struct {
	Backend     string  `json:"backend" fig:"backend"`
	TargetFPS   float64 `json:"target_fps" fig:"target_fps"`
	TimeoutMs   int     `json:"timeout_ms" fig:"timeout_ms"` // 0: twice the frame interval, at least 250ms for screen
	BackoffMs   int     `json:"backoff_ms" fig:"backoff_ms"`
	StopGraceMs int     `json:"stop_grace_ms" fig:"stop_grace_ms"`
	QueueSize   int     `json:"queue_size" fig:"queue_size"`
	// RequireRuntime makes the screen backend refuse to connect when no
	// OpenXR runtime is registered.
	RequireRuntime bool `json:"require_runtime" fig:"require_runtime"`
	// Desktop region mirrored by the screen backend. Zero size means the
	// primary display.
	RegionX int `json:"region_x" fig:"region_x"`
	RegionY int `json:"region_y" fig:"region_y"`
	RegionW int `json:"region_w" fig:"region_w"`
	RegionH int `json:"region_h" fig:"region_h"`
}

// Server configures the local HTTP surface (metrics and the browser stream).
type Server struct {
	Enabled     bool   `json:"enabled" fig:"enabled"`
	Addr        string `json:"addr" fig:"addr"`
	StreamFPS   int    `json:"stream_fps" fig:"stream_fps"`
	JPEGQuality int    `json:"jpeg_quality" fig:"jpeg_quality"`
}

// UI configures the desktop window.
type UI struct {
	Dark       bool `json:"dark" fig:"dark"`
	PreviewFPS int  `json:"preview_fps" fig:"preview_fps"`
}

const (
	BackendSynthetic = "synthetic"
	BackendScreen    = "screen"
)

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Resolution:        Res1080p,
		EyeSelection:      EyeRight,
		SmoothingEnabled:  true,
		SmoothingStrength: 50,
		WindowX:           100,
		WindowY:           100,
		Capture: Capture{
			Backend:        BackendSynthetic,
			TargetFPS:      90,
			BackoffMs:      100,
			StopGraceMs:    2000,
			QueueSize:      2,
			RequireRuntime: true,
		},
		Server: Server{
			Enabled:     true,
			Addr:        "127.0.0.1:9099",
			StreamFPS:   30,
			JPEGQuality: 80,
		},
		UI: UI{Dark: true, PreviewFPS: 30},
	}
}

// Validate clamps out-of-range values back to defaults. The returned error lists
// every field that was corrected; the config is usable either way.
func (c *Config) Validate() error {
	d := DefaultConfig()
	var errs *multierror.Error
	fix := func(field string, got any) {
		errs = multierror.Append(errs, fmt.Errorf("%s: invalid value %v, using default", field, got))
	}
	if !c.Resolution.Valid() {
		fix("resolution", c.Resolution)
		c.Resolution = d.Resolution
	}
	if !c.EyeSelection.Valid() {
		fix("eye_selection", c.EyeSelection)
		c.EyeSelection = d.EyeSelection
	}
	if c.SmoothingStrength < 0 || c.SmoothingStrength > 100 {
		fix("smoothing_strength", c.SmoothingStrength)
		c.SmoothingStrength = d.SmoothingStrength
	}
	switch strings.ToLower(c.Capture.Backend) {
	case BackendSynthetic, BackendScreen:
		c.Capture.Backend = strings.ToLower(c.Capture.Backend)
	default:
		fix("capture.backend", c.Capture.Backend)
		c.Capture.Backend = d.Capture.Backend
	}
	if c.Capture.TargetFPS <= 0 || c.Capture.TargetFPS > 500 {
		fix("capture.target_fps", c.Capture.TargetFPS)
		c.Capture.TargetFPS = d.Capture.TargetFPS
	}
	if c.Capture.TimeoutMs < 0 {
		fix("capture.timeout_ms", c.Capture.TimeoutMs)
		c.Capture.TimeoutMs = 0
	}
	if c.Capture.BackoffMs <= 0 {
		fix("capture.backoff_ms", c.Capture.BackoffMs)
		c.Capture.BackoffMs = d.Capture.BackoffMs
	}
	if c.Capture.StopGraceMs <= 0 {
		fix("capture.stop_grace_ms", c.Capture.StopGraceMs)
		c.Capture.StopGraceMs = d.Capture.StopGraceMs
	}
	if c.Capture.QueueSize <= 0 || c.Capture.QueueSize > 64 {
		fix("capture.queue_size", c.Capture.QueueSize)
		c.Capture.QueueSize = d.Capture.QueueSize
	}
	if c.Capture.RegionW < 0 || c.Capture.RegionH < 0 {
		fix("capture.region", fmt.Sprintf("%dx%d", c.Capture.RegionW, c.Capture.RegionH))
		c.Capture.RegionW, c.Capture.RegionH = 0, 0
	}
	if c.Server.Addr == "" {
		fix("server.addr", `""`)
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.StreamFPS <= 0 || c.Server.StreamFPS > 120 {
		fix("server.stream_fps", c.Server.StreamFPS)
		c.Server.StreamFPS = d.Server.StreamFPS
	}
	if c.Server.JPEGQuality < 1 || c.Server.JPEGQuality > 100 {
		fix("server.jpeg_quality", c.Server.JPEGQuality)
		c.Server.JPEGQuality = d.Server.JPEGQuality
	}
	if c.UI.PreviewFPS <= 0 || c.UI.PreviewFPS > 120 {
		fix("ui.preview_fps", c.UI.PreviewFPS)
		c.UI.PreviewFPS = d.UI.PreviewFPS
	}
	return errs.ErrorOrNil()
}

// Clone returns a copy safe to mutate independently.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Pipeline extracts the value object the mirror pipeline is built from.
func (c *Config) Pipeline() Pipeline {
	w, h := c.Resolution.Dimensions()
	return Pipeline{
		Width:             w,
		Height:            h,
		Eye:               c.EyeSelection,
		SmoothingEnabled:  c.SmoothingEnabled,
		SmoothingStrength: c.SmoothingStrength,
	}
}

// Pipeline is the subset of settings the capture and smoothing stages consume.
// It is passed by value at construction and on every reconfiguration.
type Pipeline struct {
	Width             int
	Height            int
	Eye               Eye
	SmoothingEnabled  bool
	SmoothingStrength int
}

// Strength returns the strength to feed the smoother: zero when disabled.
func (p Pipeline) Strength() int {
	if !p.SmoothingEnabled {
		return 0
	}
	return p.SmoothingStrength
}

// SameResolution reports whether o targets the same frame size.
func (p Pipeline) SameResolution(o Pipeline) bool {
	return p.Width == o.Width && p.Height == o.Height
}

// Interval is the nominal frame period.
func (c Capture) Interval() time.Duration {
	fps := c.TargetFPS
	if fps <= 0 {
		fps = 90
	}
	return time.Duration(float64(time.Second) / fps)
}

// screenMinTimeout is the default deadline floor for desktop grabs, which
// include a full-display copy and a resample.
const screenMinTimeout = 250 * time.Millisecond

// Timeout is the per-frame deadline handed to the backend.
func (c Capture) Timeout() time.Duration {
	if c.TimeoutMs > 0 {
		return time.Duration(c.TimeoutMs) * time.Millisecond
	}
	d := 2 * c.Interval()
	if c.Backend == BackendScreen && d < screenMinTimeout {
		d = screenMinTimeout
	}
	return d
}

func (c Capture) Backoff() time.Duration {
	return time.Duration(c.BackoffMs) * time.Millisecond
}

func (c Capture) StopGrace() time.Duration {
	return time.Duration(c.StopGraceMs) * time.Millisecond
}
