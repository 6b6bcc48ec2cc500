package capture

import "errors"

// Connection errors end the current connect attempt. They are not retried.
var (
	ErrRuntimeUnavailable   = errors.New("capture: runtime unavailable")
	ErrInitializationFailed = errors.New("capture: initialization failed")
)

// Capture errors.
var (
	// ErrTimeout is transient: the loop backs off and retries.
	ErrTimeout = errors.New("capture: timeout waiting for frame")
	// ErrSessionLost ends the session; a new Connect is required.
	ErrSessionLost = errors.New("capture: session lost")
	// ErrUnsupportedResolution is a configuration error surfaced immediately.
	ErrUnsupportedResolution = errors.New("capture: unsupported resolution")
	// ErrNotConnected is returned by operations that need a live session.
	ErrNotConnected = errors.New("capture: not connected")
)

// ErrStopTimeout reports that the loop did not exit within the grace period
// and was abandoned.
var ErrStopTimeout = errors.New("capture: loop did not stop within grace period")

// IsConnectionError reports whether err came from a failed connect attempt.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrRuntimeUnavailable) || errors.Is(err, ErrInitializationFailed)
}

// IsTerminal reports whether err ends the session so the loop must stop.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrSessionLost) || errors.Is(err, ErrNotConnected)
}

// IsTransient reports whether the loop should back off and try again.
func IsTransient(err error) bool {
	return err != nil && !IsTerminal(err) && !errors.Is(err, ErrUnsupportedResolution)
}

// errorKind is the label value used for metrics and events.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrSessionLost):
		return "session_lost"
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrUnsupportedResolution):
		return "unsupported_resolution"
	default:
		return "other"
	}
}
