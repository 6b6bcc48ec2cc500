package presenter

import (
	"image"

	"github.com/soocke/xr-mirror-go/domain/frame"
)

// FrameSlot is the newest-frame holder filled by the pipeline.
type FrameSlot interface {
	Load() (*frame.Buffer, uint64)
}

// MirrorView draws frames into the window.
type MirrorView interface {
	UpdateMirror(img image.Image)
	PreviewReset()
}

// MirrorPresenter copies the newest pipeline frame into the view. It runs on
// the Tk thread so the view has a single writer.
type MirrorPresenter struct {
	slot    FrameSlot
	view    MirrorView
	onShown func()
	lastGen uint64
}

// NewMirrorPresenter returns a presenter; onShown may be nil.
func NewMirrorPresenter(slot FrameSlot, view MirrorView, onShown func()) *MirrorPresenter {
	return &MirrorPresenter{slot: slot, view: view, onShown: onShown}
}

// ProcessFrame redraws only when the slot changed since the last call.
func (p *MirrorPresenter) ProcessFrame() {
	if p == nil || p.slot == nil || p.view == nil {
		return
	}
	fb, gen := p.slot.Load()
	if gen == p.lastGen {
		return
	}
	p.lastGen = gen
	if fb == nil {
		p.view.PreviewReset()
		return
	}
	p.view.UpdateMirror(fb.RGBA())
	if p.onShown != nil {
		p.onShown()
	}
}
