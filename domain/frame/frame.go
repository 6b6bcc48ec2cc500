package frame

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"
)

// BytesPerPixel is fixed: every buffer carries blue, green, red, alpha.
const BytesPerPixel = 4

// ErrInvalidDimensions reports a pixel slice that does not match width*height*4.
var ErrInvalidDimensions = errors.New("frame: invalid dimensions")

// Buffer is an immutable BGRA frame. Rows are packed (stride = width*4).
//
// A Buffer never changes after construction. Stages hand buffers to each other
// by pointer; receivers must treat Pix() as read-only.
type Buffer struct {
	pix       []byte
	width     int
	height    int
	timestamp time.Time
	seq       uint64
	view      uint64
}

// New wraps pix without copying. The caller gives up ownership of pix.
func New(pix []byte, width, height int, ts time.Time) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if len(pix) != width*height*BytesPerPixel {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrInvalidDimensions, len(pix), width, height)
	}
	return &Buffer{pix: pix, width: width, height: height, timestamp: ts}, nil
}

// Filled returns a buffer where every pixel has the given channel values.
func Filled(width, height int, b, g, r, a byte, ts time.Time) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	pix := make([]byte, width*height*BytesPerPixel)
	for i := 0; i < len(pix); i += BytesPerPixel {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = b, g, r, a
	}
	return New(pix, width, height, ts)
}

func (b *Buffer) Width() int           { return b.width }
func (b *Buffer) Height() int          { return b.height }
func (b *Buffer) Timestamp() time.Time { return b.timestamp }
func (b *Buffer) Stride() int          { return b.width * BytesPerPixel }

// Sequence is the capture ordinal assigned by the source, zero if unset.
func (b *Buffer) Sequence() uint64 { return b.seq }

// View is the source's view generation when the frame was requested. Frames
// with different views must not be blended.
func (b *Buffer) View() uint64 { return b.view }

// Pix exposes the backing bytes. Do not modify.
func (b *Buffer) Pix() []byte { return b.pix }

// SameSize reports whether o has identical dimensions.
func (b *Buffer) SameSize(o *Buffer) bool {
	return o != nil && b.width == o.width && b.height == o.height
}

// WithSequence returns a shallow copy tagged with seq. Pixels are shared, which
// is safe because neither copy can mutate them.
func (b *Buffer) WithSequence(seq uint64) *Buffer {
	c := *b
	c.seq = seq
	return &c
}

// WithView returns a shallow copy tagged with view.
func (b *Buffer) WithView(view uint64) *Buffer {
	c := *b
	c.view = view
	return &c
}

// Derive builds a new buffer of the same size and metadata around pix.
func (b *Buffer) Derive(pix []byte) (*Buffer, error) {
	out, err := New(pix, b.width, b.height, b.timestamp)
	if err != nil {
		return nil, err
	}
	out.seq = b.seq
	out.view = b.view
	return out, nil
}

// Clone deep-copies the pixel data.
func (b *Buffer) Clone() *Buffer {
	pix := make([]byte, len(b.pix))
	copy(pix, b.pix)
	c := *b
	c.pix = pix
	return &c
}

// Equal compares dimensions and pixel bytes.
func (b *Buffer) Equal(o *Buffer) bool {
	if !b.SameSize(o) {
		return false
	}
	return bytes.Equal(b.pix, o.pix)
}

// RGBA converts to a freshly allocated *image.RGBA (channel swap B<->R).
func (b *Buffer) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	dst := img.Pix
	for i := 0; i < len(b.pix); i += BytesPerPixel {
		dst[i] = b.pix[i+2]
		dst[i+1] = b.pix[i+1]
		dst[i+2] = b.pix[i]
		dst[i+3] = b.pix[i+3]
	}
	return img
}

// FromImage converts any image into a BGRA buffer. Fast paths exist for the
// RGBA and NRGBA layouts produced by screen capture and imaging.
func FromImage(img image.Image, ts time.Time) (*Buffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidDimensions)
	}
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	pix := make([]byte, w*h*BytesPerPixel)
	switch src := img.(type) {
	case *image.RGBA:
		swapRows(pix, src.Pix, src.Stride, src.PixOffset(r.Min.X, r.Min.Y), w, h)
	case *image.NRGBA:
		// Opaque sources only; straight alpha is copied through as-is.
		swapRows(pix, src.Pix, src.Stride, src.PixOffset(r.Min.X, r.Min.Y), w, h)
	default:
		i := 0
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				cr, cg, cb, ca := img.At(x, y).RGBA()
				pix[i] = byte(cb >> 8)
				pix[i+1] = byte(cg >> 8)
				pix[i+2] = byte(cr >> 8)
				pix[i+3] = byte(ca >> 8)
				i += BytesPerPixel
			}
		}
	}
	return New(pix, w, h, ts)
}

func swapRows(dst, src []byte, stride, offset, w, h int) {
	row := w * BytesPerPixel
	for y := 0; y < h; y++ {
		s := src[offset+y*stride : offset+y*stride+row]
		d := dst[y*row : (y+1)*row]
		for i := 0; i < row; i += BytesPerPixel {
			d[i] = s[i+2]
			d[i+1] = s[i+1]
			d[i+2] = s[i]
			d[i+3] = s[i+3]
		}
	}
}
