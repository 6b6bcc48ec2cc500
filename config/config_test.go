package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func TestDefaultsMatchDesktopSettings(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate cleanly: %v", err)
	}
	p := c.Pipeline()
	if p.Width != 1920 || p.Height != 1080 {
		t.Fatalf("default size %dx%d", p.Width, p.Height)
	}
	if p.Eye != EyeRight || !p.SmoothingEnabled || p.SmoothingStrength != 50 {
		t.Fatalf("unexpected pipeline defaults %+v", p)
	}
	if c.WindowX != 100 || c.WindowY != 100 {
		t.Fatalf("window position defaults %d,%d", c.WindowX, c.WindowY)
	}
}

func TestValidateClampsAndReports(t *testing.T) {
	c := DefaultConfig()
	c.Resolution = "4k"
	c.SmoothingStrength = 150
	c.Capture.QueueSize = 0
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, field := range []string{"resolution", "smoothing_strength", "capture.queue_size"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q does not mention %s", err, field)
		}
	}
	if c.Resolution != Res1080p || c.SmoothingStrength != 50 || c.Capture.QueueSize != 2 {
		t.Fatalf("values not reset: %+v", c)
	}
}

func TestPipelineStrengthHonoursEnabled(t *testing.T) {
	p := Pipeline{SmoothingEnabled: false, SmoothingStrength: 75}
	if p.Strength() != 0 {
		t.Fatalf("disabled smoothing must yield strength 0")
	}
	p.SmoothingEnabled = true
	if p.Strength() != 75 {
		t.Fatalf("strength = %d", p.Strength())
	}
}

func TestCaptureTimings(t *testing.T) {
	c := DefaultConfig().Capture
	if got := c.Interval(); got < 11*time.Millisecond || got > 12*time.Millisecond {
		t.Fatalf("interval %v", got)
	}
	if c.Timeout() != 2*c.Interval() {
		t.Fatalf("timeout should default to two intervals")
	}
	c.Backend = BackendScreen
	if c.Timeout() != 250*time.Millisecond {
		t.Fatalf("screen timeout = %v", c.Timeout())
	}
	c.TargetFPS = 1
	if c.Timeout() != 2*time.Second {
		t.Fatalf("slow screen timeout = %v", c.Timeout())
	}
	c.TimeoutMs = 50
	if c.Timeout() != 50*time.Millisecond {
		t.Fatalf("explicit timeout ignored")
	}
}

func TestParseEnums(t *testing.T) {
	if r, err := ParseResolution("1280x720"); err != nil || r != Res720p {
		t.Fatalf("ParseResolution: %v %v", r, err)
	}
	if _, err := ParseResolution("8k"); err == nil {
		t.Fatalf("expected error")
	}
	if e, err := ParseEye("both"); err != nil || e != EyeBoth {
		t.Fatalf("ParseEye: %v %v", e, err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Resolution != Res1080p || c.SmoothingStrength != 50 {
		t.Fatalf("expected defaults, got %+v", c)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xr", "settings.json")
	c := DefaultConfig()
	c.Resolution = Res720p
	c.EyeSelection = EyeBoth
	c.SmoothingEnabled = false
	c.SmoothingStrength = 25
	c.WindowX, c.WindowY = 300, 200
	c.Capture.Backend = BackendScreen
	if err := c.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Resolution != Res720p || got.EyeSelection != EyeBoth || got.SmoothingEnabled || got.SmoothingStrength != 25 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.WindowX != 300 || got.Capture.Backend != BackendScreen {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("XRMIRROR_SMOOTHING_STRENGTH", "75")
	c, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.SmoothingStrength != 75 {
		t.Fatalf("env override ignored: %d", c.SmoothingStrength)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
	if c == nil || c.Resolution != Res1080p {
		t.Fatalf("defaults expected on corrupt file")
	}
}

func TestFlagsApplyOnlyChanged(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := WithFlags(fs)
	if err := fs.Parse([]string{"--resolution", "720p", "--eye=Left", "--no-server"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := DefaultConfig()
	c.SmoothingStrength = 25
	f.Apply(c)
	if c.Resolution != Res720p || c.EyeSelection != EyeLeft {
		t.Fatalf("flags not applied: %+v", c)
	}
	if c.SmoothingStrength != 25 {
		t.Fatalf("unset flag overwrote file value")
	}
	if c.Server.Enabled {
		t.Fatalf("--no-server ignored")
	}
}

func TestWatcherReloadsOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatal(err)
	}
	got := make(chan *Config, 4)
	w, err := Watch(path, zerolog.Nop(), func(c *Config) { got <- c })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	c := DefaultConfig()
	c.EyeSelection = EyeLeft
	if err := c.Save(path); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-got:
			if c.EyeSelection == EyeLeft {
				return
			}
		case <-deadline:
			t.Fatalf("no reload observed")
		}
	}
}
