package mirror

import (
	"sync/atomic"

	"github.com/soocke/xr-mirror-go/domain/frame"
)

// Presenter receives every finished frame in capture order. Present is called
// on the pipeline goroutine and must not block; ownership of fb passes to the
// presenter, which must copy the pixels into its own surface.
type Presenter interface {
	Present(fb *frame.Buffer)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(fb *frame.Buffer)

func (f PresenterFunc) Present(fb *frame.Buffer) { f(fb) }

// Resetter is implemented by presenters that hold frames and must forget
// them when the output size changes.
type Resetter interface {
	Reset()
}

// LatestFrame keeps only the newest frame. The display thread polls it, which
// keeps the display surface single-writer.
type LatestFrame struct {
	fb  atomic.Pointer[frame.Buffer]
	gen atomic.Uint64
}

func (l *LatestFrame) Present(fb *frame.Buffer) {
	l.fb.Store(fb)
	l.gen.Add(1)
}

// Load returns the newest frame (nil after Reset) and a generation counter
// that changes whenever the slot does.
func (l *LatestFrame) Load() (*frame.Buffer, uint64) {
	g := l.gen.Load()
	return l.fb.Load(), g
}

func (l *LatestFrame) Reset() {
	l.fb.Store(nil)
	l.gen.Add(1)
}
