// Package screen mirrors a desktop region, typically the runtime's own
// mirror window, as the headset view.
package screen

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/vova616/screenshot"

	"github.com/soocke/xr-mirror-go/config"
	"github.com/soocke/xr-mirror-go/domain/capture"
	"github.com/soocke/xr-mirror-go/domain/frame"
)

// Options configures the backend. Zero Region means the primary display.
type Options struct {
	Region image.Rectangle
	// RequireRuntime refuses Connect unless RuntimeProbe reports a runtime.
	RequireRuntime bool
	RuntimeProbe   func() bool

	// Test seams; nil selects the screenshot package.
	Grab   func(r image.Rectangle) (*image.RGBA, error)
	Bounds func() (image.Rectangle, error)
}

// Backend implements capture.Backend on top of desktop screenshots.
type Backend struct {
	opts Options

	mu     sync.Mutex
	open   map[capture.Handle]image.Rectangle
	next   capture.Handle
	filter imaging.ResampleFilter
}

func New(opts Options) *Backend {
	if opts.Grab == nil {
		opts.Grab = screenshot.CaptureRect
	}
	if opts.Bounds == nil {
		opts.Bounds = screenshot.ScreenRect
	}
	return &Backend{opts: opts, open: make(map[capture.Handle]image.Rectangle), filter: imaging.Linear}
}

func (b *Backend) Name() string { return config.BackendScreen }

// ProbeAvailable checks that the display can be queried and, if required,
// that a runtime is registered.
func (b *Backend) ProbeAvailable() bool {
	if b.opts.RequireRuntime && (b.opts.RuntimeProbe == nil || !b.opts.RuntimeProbe()) {
		return false
	}
	_, err := b.opts.Bounds()
	return err == nil
}

func (b *Backend) Connect(string, uint32) (capture.Handle, error) {
	if b.opts.RequireRuntime && (b.opts.RuntimeProbe == nil || !b.opts.RuntimeProbe()) {
		return 0, capture.ErrRuntimeUnavailable
	}
	screen, err := b.opts.Bounds()
	if err != nil {
		return 0, fmt.Errorf("%w: screen bounds: %w", capture.ErrInitializationFailed, err)
	}
	region := screen
	if !b.opts.Region.Empty() {
		region = b.opts.Region.Intersect(screen)
		if region.Empty() {
			return 0, fmt.Errorf("%w: region %v outside screen %v", capture.ErrInitializationFailed, b.opts.Region, screen)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.open[b.next] = region
	return b.next, nil
}

func (b *Backend) Disconnect(h capture.Handle) error {
	b.mu.Lock()
	delete(b.open, h)
	b.mu.Unlock()
	return nil
}

// SupportsResolution accepts any size up to 4K; frames are resampled.
func (b *Backend) SupportsResolution(w, h int) bool {
	return w > 0 && h > 0 && w <= 3840 && h <= 2160
}

// Pull grabs the region, crops the requested eye and resamples to the target.
func (b *Backend) Pull(ctx context.Context, h capture.Handle, req capture.PullRequest) (capture.RawFrame, error) {
	b.mu.Lock()
	region, ok := b.open[h]
	b.mu.Unlock()
	if !ok {
		return capture.RawFrame{}, capture.ErrSessionLost
	}
	if err := ctx.Err(); err != nil {
		return capture.RawFrame{}, err
	}
	shot, err := b.opts.Grab(EyeRect(region, req.Eye))
	if err != nil {
		return capture.RawFrame{}, fmt.Errorf("screen: grab: %w", err)
	}
	// The grab is not cancellable. Once it has finished the frame is kept even
	// if the deadline passed meanwhile.
	var img image.Image = shot
	if sb := shot.Bounds(); sb.Dx() != req.Width || sb.Dy() != req.Height {
		img = imaging.Resize(shot, req.Width, req.Height, b.filter)
	}
	fb, err := frame.FromImage(img, time.Now())
	if err != nil {
		return capture.RawFrame{}, err
	}
	return capture.RawFrame{Pix: fb.Pix(), Width: fb.Width(), Height: fb.Height()}, nil
}

// EyeRect returns the half of a side-by-side mirror that shows eye.
func EyeRect(r image.Rectangle, eye config.Eye) image.Rectangle {
	mid := r.Min.X + r.Dx()/2
	switch eye {
	case config.EyeLeft:
		return image.Rect(r.Min.X, r.Min.Y, mid, r.Max.Y)
	case config.EyeRight:
		return image.Rect(mid, r.Min.Y, r.Max.X, r.Max.Y)
	default:
		return r
	}
}

var _ capture.Backend = (*Backend)(nil)
