package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"github.com/kkyr/fig"
)

// EnvPrefix prefixes environment overrides, e.g. XRMIRROR_SMOOTHING_STRENGTH.
const EnvPrefix = "XRMIRROR"

// ErrLoad marks a settings file that could not be read or decoded, as opposed
// to one that decoded but carried out-of-range values.
var ErrLoad = errors.New("config: load")

const settingsRelPath = "xr-mirror/settings.json"

// DefaultPath returns the per-user settings file, creating its directory.
func DefaultPath() (string, error) {
	return xdg.ConfigFile(settingsRelPath)
}

// Load reads configuration from path with environment overrides applied on top.
// A missing file yields DefaultConfig() plus environment overrides. Values that
// fail validation are replaced with defaults; the returned error then describes
// them while the returned config remains usable.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return loadEnvOnly(cfg)
	}
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err == nil {
		defer func() { _ = lock.Unlock() }()
	}
	err := fig.Load(cfg,
		fig.File(filepath.Base(path)),
		fig.Dirs(filepath.Dir(path)),
		fig.UseEnv(EnvPrefix),
	)
	if errors.Is(err, fig.ErrFileNotFound) {
		return loadEnvOnly(cfg)
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("%w %s: %w", ErrLoad, path, err)
	}
	return cfg, cfg.Validate()
}

func loadEnvOnly(cfg *Config) (*Config, error) {
	if err := fig.Load(cfg, fig.IgnoreFile(), fig.UseEnv(EnvPrefix)); err != nil {
		return DefaultConfig(), fmt.Errorf("%w: env: %w", ErrLoad, err)
	}
	return cfg, cfg.Validate()
}

// Save writes the configuration as indented JSON. The file is replaced
// atomically while an exclusive lock is held so concurrent instances and the
// watcher never observe a partial write.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("config: lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("config: temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("config: replace: %w", err)
	}
	return nil
}
