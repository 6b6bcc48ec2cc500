// Package synthetic renders an animated test pattern in place of a headset
// view. It is the default backend and needs no runtime.
package synthetic

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/soocke/xr-mirror-go/config"
	"github.com/soocke/xr-mirror-go/domain/capture"
)

const maxSide = 4096

// Backend implements capture.Backend.
type Backend struct {
	mu      sync.Mutex
	handles map[capture.Handle]uint64 // handle -> frames served
	next    capture.Handle
	start   time.Time
	now     func() time.Time
	label   bool
}

// New returns a backend that stamps the eye name and frame counter onto
// every frame.
func New() *Backend {
	return &Backend{
		handles: make(map[capture.Handle]uint64),
		start:   time.Now(),
		now:     time.Now,
		label:   true,
	}
}

func (b *Backend) Name() string { return config.BackendSynthetic }

func (b *Backend) ProbeAvailable() bool { return true }

func (b *Backend) Connect(appName string, appVersion uint32) (capture.Handle, error) {
	if appName == "" {
		return 0, fmt.Errorf("%w: empty application name", capture.ErrInitializationFailed)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.handles[b.next] = 0
	return b.next, nil
}

func (b *Backend) Disconnect(h capture.Handle) error {
	b.mu.Lock()
	delete(b.handles, h)
	b.mu.Unlock()
	return nil
}

func (b *Backend) SupportsResolution(w, h int) bool {
	return w >= 16 && h >= 16 && w <= maxSide && h <= maxSide && w%2 == 0 && h%2 == 0
}

// Pull renders one frame. The pattern animates with wall-clock time.
func (b *Backend) Pull(ctx context.Context, h capture.Handle, req capture.PullRequest) (capture.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return capture.RawFrame{}, err
	}
	b.mu.Lock()
	n, ok := b.handles[h]
	if ok {
		b.handles[h] = n + 1
	}
	t := b.now().Sub(b.start).Seconds()
	b.mu.Unlock()
	if !ok {
		return capture.RawFrame{}, capture.ErrSessionLost
	}
	pix := make([]byte, req.Width*req.Height*4)
	Render(pix, req.Width, req.Height, t, req.Eye)
	if b.label {
		stamp(pix, req.Width, req.Height, fmt.Sprintf("%s #%d", req.Eye, n+1))
	}
	return capture.RawFrame{Pix: pix, Width: req.Width, Height: req.Height}, nil
}

// Render fills pix (BGRA) with three phase-shifted sine gradients. The right
// eye is phase-shifted so switching eyes is visible; Both shows each half.
func Render(pix []byte, w, h int, t float64, eye config.Eye) {
	for y := 0; y < h; y++ {
		g := byte(128 + 127*math.Sin(float64(y)*0.01+t*1.1))
		row := pix[y*w*4 : (y+1)*w*4]
		for x := 0; x < w; x++ {
			px := x
			if eye == config.EyeRight || (eye == config.EyeBoth && x >= w/2) {
				px = x + w/8
			}
			i := x * 4
			row[i] = byte(128 + 127*math.Sin(float64(px+y)*0.005+t*0.8))
			row[i+1] = g
			row[i+2] = byte(128 + 127*math.Sin(float64(px)*0.01+t))
			row[i+3] = 255
		}
	}
}

// stamp draws text in the top-left corner. White text is channel-order
// agnostic, so the BGRA buffer can be wrapped as RGBA directly.
func stamp(pix []byte, w, h int, text string) {
	img := &image.RGBA{Pix: pix, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(8, 18),
	}
	d.DrawString(text)
}

var _ capture.Backend = (*Backend)(nil)
