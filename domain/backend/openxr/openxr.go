// Package openxr detects a registered OpenXR runtime without loading it.
package openxr

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// EnvRuntimeJSON overrides the active runtime manifest, as honoured by the
// OpenXR loader itself.
const EnvRuntimeJSON = "XR_RUNTIME_JSON"

var ErrNoRuntime = errors.New("openxr: no active runtime registered")

// Manifest is the subset of an OpenXR runtime manifest we read.
type Manifest struct {
	FileFormatVersion string `json:"file_format_version"`
	Runtime           struct {
		Name        string `json:"name"`
		LibraryPath string `json:"library_path"`
	} `json:"runtime"`
}

// Status is the outcome of a probe.
type Status struct {
	Available    bool
	ManifestPath string
	RuntimeName  string
	Err          error
}

func (s Status) String() string {
	if !s.Available {
		return fmt.Sprintf("unavailable (%v)", s.Err)
	}
	if s.RuntimeName != "" {
		return s.RuntimeName
	}
	return s.ManifestPath
}

// Probe locates the active runtime manifest and checks it parses. It never
// loads the runtime library, so it is cheap enough to call from a UI handler.
func Probe() Status {
	path := os.Getenv(EnvRuntimeJSON)
	if path == "" {
		var err error
		if path, err = activeRuntimePath(); err != nil {
			return Status{Err: err}
		}
	}
	m, err := ReadManifest(path)
	if err != nil {
		return Status{ManifestPath: path, Err: err}
	}
	return Status{Available: true, ManifestPath: path, RuntimeName: m.Runtime.Name}
}

// RuntimeAvailable is Probe().Available.
func RuntimeAvailable() bool { return Probe().Available }

// ReadManifest parses a runtime manifest file.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("openxr: read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("openxr: parse manifest %s: %w", path, err)
	}
	if m.Runtime.LibraryPath == "" {
		return m, fmt.Errorf("openxr: manifest %s has no library_path", path)
	}
	return m, nil
}
