//go:build !windows

package openxr

import (
	"github.com/adrg/xdg"
)

func activeRuntimePath() (string, error) {
	path, err := xdg.SearchConfigFile("openxr/1/active_runtime.json")
	if err != nil {
		return "", ErrNoRuntime
	}
	return path, nil
}

// LoaderAvailable always reports true off Windows: the loader is linked by
// the runtime package manager rather than shipped per application.
func LoaderAvailable() bool { return true }
