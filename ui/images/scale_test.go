package images

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestScaleToFit(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
	got := ScaleToFit(src, 640, 640)
	if b := got.Bounds(); b.Dx() != 640 || b.Dy() != 360 {
		t.Fatalf("expected 640x360, got %dx%d", b.Dx(), b.Dy())
	}
	if same := ScaleToFit(src, 4000, 4000); same != image.Image(src) {
		t.Fatalf("fitting image should be returned unchanged")
	}
	if ScaleToFit(nil, 1, 1) != nil {
		t.Fatalf("nil in, nil out")
	}
}

func TestPlaceholderDecodes(t *testing.T) {
	img, err := png.Decode(bytes.NewReader(Placeholder(20, 10)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Fatalf("unexpected size %v", b)
	}
}
