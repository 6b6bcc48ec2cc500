package view

import (
	"image"

	"github.com/soocke/xr-mirror-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// MirrorSurface is the label the mirrored frames are drawn into.
type MirrorSurface interface {
	UpdateMirror(img image.Image)
	Reset()
	SetTargetSize(w, h int)
}

type mirrorSurface struct {
	label     *LabelWidget
	targetW   int
	targetH   int
	prevPhoto *Img // disposed before replacement so old pixel data is freed
}

const (
	minSurface = 50
)

// NewMirrorSurface creates the mirror label and grids it at row, spanning
// cols columns.
func NewMirrorSurface(parent *FrameWidget, row, cols, w, h int) MirrorSurface {
	photo := NewPhoto(Data(images.Placeholder(w, h)))
	lbl := Label(Image(photo), Borderwidth(0))
	if parent != nil {
		Grid(lbl, In(parent), Row(row), Column(0), Columnspan(cols), Sticky("nsew"))
	} else {
		Grid(lbl, Row(row), Column(0), Columnspan(cols), Sticky("nsew"))
	}
	return &mirrorSurface{label: lbl, prevPhoto: photo, targetW: w, targetH: h}
}

func (v *mirrorSurface) UpdateMirror(img image.Image) {
	if v.label == nil || img == nil {
		return
	}
	scaled := images.ScaleToFit(img, v.targetW, v.targetH)
	v.swap(images.EncodePNG(scaled))
}

func (v *mirrorSurface) Reset() {
	if v.label == nil {
		return
	}
	v.swap(images.Placeholder(v.targetW, v.targetH))
}

func (v *mirrorSurface) swap(png []byte) {
	if v.prevPhoto != nil {
		v.prevPhoto.Delete()
	}
	v.prevPhoto = NewPhoto(Data(png))
	v.label.Configure(Image(v.prevPhoto))
}

// SetTargetSize updates the scaling bounds used by UpdateMirror.
func (v *mirrorSurface) SetTargetSize(w, h int) {
	if v == nil {
		return
	}
	v.targetW, v.targetH = max(w, minSurface), max(h, minSurface)
}
