package capture

import (
	"context"

	"github.com/soocke/xr-mirror-go/config"
)

// Handle identifies a backend session.
type Handle uint64

// PullRequest describes the frame the source wants from the backend.
type PullRequest struct {
	Width  int
	Height int
	Eye    config.Eye
}

// RawFrame is what a backend hands back: packed BGRA pixels.
type RawFrame struct {
	Pix    []byte
	Width  int
	Height int
}

// Backend is the in-process boundary to the system runtime that renders the
// headset view. Implementations must be safe for use by one Source at a time.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// ProbeAvailable is a fast, conservative presence check.
	ProbeAvailable() bool
	// Connect opens a session. Errors should wrap ErrRuntimeUnavailable when
	// the runtime is missing; anything else is treated as an init failure.
	Connect(appName string, appVersion uint32) (Handle, error)
	Disconnect(h Handle) error
	// SupportsResolution reports whether frames of w x h can be produced.
	SupportsResolution(w, h int) bool
	// Pull blocks until one frame is available or ctx ends. A lost runtime
	// must be reported by wrapping ErrSessionLost. The returned pixel slice
	// becomes owned by the caller.
	Pull(ctx context.Context, h Handle, req PullRequest) (RawFrame, error)
}
