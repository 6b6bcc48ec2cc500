//go:build windows

package openxr

import (
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const activeRuntimeKey = `SOFTWARE\Khronos\OpenXR\1`

func activeRuntimePath() (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, activeRuntimeKey, registry.QUERY_VALUE)
	if err != nil {
		return "", ErrNoRuntime
	}
	defer k.Close()
	path, _, err := k.GetStringValue("ActiveRuntime")
	if err != nil || path == "" {
		return "", ErrNoRuntime
	}
	return path, nil
}

// LoaderAvailable reports whether openxr_loader.dll can be loaded.
func LoaderAvailable() bool {
	return windows.NewLazyDLL("openxr_loader.dll").Load() == nil
}
