package config

import (
	"github.com/spf13/pflag"
)

// Flags carries command-line overrides. Only flags the user actually set are
// applied, so values from the settings file survive otherwise.
type Flags struct {
	ConfigPath string
	Headless   bool
	ConsoleLog bool

	fs         *pflag.FlagSet
	debug      bool
	resolution Resolution
	eye        Eye
	smoothing  bool
	strength   int
	backend    string
	fps        float64
	addr       string
	noServer   bool
}

// WithFlags registers the application flags on fs.
func WithFlags(fs *pflag.FlagSet) *Flags {
	d := DefaultConfig()
	f := &Flags{fs: fs, resolution: d.Resolution, eye: d.EyeSelection}
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "settings file (default: per-user config dir)")
	fs.BoolVar(&f.Headless, "headless", false, "run capture and stream server without a window")
	fs.BoolVar(&f.ConsoleLog, "console-log", false, "human readable log output")
	fs.BoolVarP(&f.debug, "debug", "d", d.Debug, "debug logging and runtime stats")
	fs.VarP(&f.resolution, "resolution", "r", "output resolution: 720p or 1080p")
	fs.VarP(&f.eye, "eye", "e", "eye selection: Left, Right or Both")
	fs.BoolVar(&f.smoothing, "smoothing", d.SmoothingEnabled, "enable temporal smoothing")
	fs.IntVar(&f.strength, "strength", d.SmoothingStrength, "smoothing strength 0-100")
	fs.StringVar(&f.backend, "backend", d.Capture.Backend, "frame backend: synthetic or screen")
	fs.Float64Var(&f.fps, "fps", d.Capture.TargetFPS, "capture rate in frames per second")
	fs.StringVar(&f.addr, "addr", d.Server.Addr, "stream/metrics listen address")
	fs.BoolVar(&f.noServer, "no-server", false, "disable the stream/metrics server")
	return f
}

// Apply copies explicitly set flags onto c.
func (f *Flags) Apply(c *Config) {
	if f == nil || f.fs == nil || c == nil {
		return
	}
	if f.fs.Changed("debug") {
		c.Debug = f.debug
	}
	if f.fs.Changed("resolution") {
		c.Resolution = f.resolution
	}
	if f.fs.Changed("eye") {
		c.EyeSelection = f.eye
	}
	if f.fs.Changed("smoothing") {
		c.SmoothingEnabled = f.smoothing
	}
	if f.fs.Changed("strength") {
		c.SmoothingStrength = f.strength
	}
	if f.fs.Changed("backend") {
		c.Capture.Backend = f.backend
	}
	if f.fs.Changed("fps") {
		c.Capture.TargetFPS = f.fps
	}
	if f.fs.Changed("addr") {
		c.Server.Addr = f.addr
	}
	if f.noServer {
		c.Server.Enabled = false
	}
}
