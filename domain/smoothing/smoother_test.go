package smoothing

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/soocke/xr-mirror-go/domain/frame"
)

func uniform(t *testing.T, w, h int, v byte) *frame.Buffer {
	t.Helper()
	fb, err := frame.Filled(w, h, v, v, v, 255, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return fb
}

func randomFrame(t *testing.T, r *rand.Rand, w, h int) *frame.Buffer {
	t.Helper()
	pix := make([]byte, w*h*4)
	r.Read(pix)
	fb, err := frame.New(pix, w, h, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return fb
}

func TestTwoFrameBlend(t *testing.T) {
	s := New()
	f1 := uniform(t, 4, 4, 10)
	f2 := uniform(t, 4, 4, 20)

	out, err := s.Process(f1, 50)
	if err != nil {
		t.Fatalf("process f1: %v", err)
	}
	if out != f1 {
		t.Fatalf("first frame should pass through unchanged")
	}
	if s.HistoryLen() != 1 {
		t.Fatalf("history len %d", s.HistoryLen())
	}

	out, err = s.Process(f2, 50)
	if err != nil {
		t.Fatalf("process f2: %v", err)
	}
	p := out.Pix()
	for i := 0; i < len(p); i += 4 {
		if p[i] != 18 || p[i+1] != 18 || p[i+2] != 18 || p[i+3] != 255 {
			t.Fatalf("pixel %d = %v, want [18 18 18 255]", i/4, p[i:i+4])
		}
	}
	if out.Width() != 4 || out.Height() != 4 {
		t.Fatalf("output size %dx%d", out.Width(), out.Height())
	}
}

func TestStrengthZeroIsIdentity(t *testing.T) {
	s := New()
	r := rand.New(rand.NewSource(1))
	_, _ = s.Process(randomFrame(t, r, 3, 3), 60)
	_, _ = s.Process(randomFrame(t, r, 3, 3), 60)
	before := s.HistoryLen()

	in := randomFrame(t, r, 3, 3)
	ref := in.Clone()
	out, err := s.Process(in, 0)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !out.Equal(ref) {
		t.Fatalf("strength 0 altered the frame")
	}
	if s.HistoryLen() != before {
		t.Fatalf("strength 0 changed history (%d -> %d)", before, s.HistoryLen())
	}
}

func TestInvalidStrength(t *testing.T) {
	s := New()
	for _, v := range []int{-1, 101} {
		if _, err := s.Process(uniform(t, 1, 1, 0), v); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("strength %d: expected ErrInvalidArgument, got %v", v, err)
		}
	}
}

func TestDimensionMismatch(t *testing.T) {
	s := New()
	if _, err := s.Process(uniform(t, 4, 4, 1), 50); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Process(uniform(t, 2, 2, 1), 50); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	s.ClearHistory()
	if _, err := s.Process(uniform(t, 2, 2, 1), 50); err != nil {
		t.Fatalf("after clear: %v", err)
	}
}

func TestHistoryBoundedAndCleared(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		if _, err := s.Process(uniform(t, 2, 2, byte(i)), 75); err != nil {
			t.Fatal(err)
		}
		if s.HistoryLen() > MaxHistoryFrames {
			t.Fatalf("history grew to %d", s.HistoryLen())
		}
	}
	if s.HistoryLen() != MaxHistoryFrames {
		t.Fatalf("history len %d", s.HistoryLen())
	}
	s.ClearHistory()
	if s.HistoryLen() != 0 {
		t.Fatalf("history not cleared")
	}
	in := uniform(t, 2, 2, 200)
	out, err := s.Process(in, 75)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("first frame after clear must pass through")
	}
}

func TestWeightsSumToOne(t *testing.T) {
	for strength := 1; strength <= 100; strength++ {
		for n := 2; n <= MaxHistoryFrames; n++ {
			cw, hw := Weights(strength, n)
			if cw < 0 || hw < 0 {
				t.Fatalf("negative weight for s=%d n=%d", strength, n)
			}
			if sum := cw + float64(n-1)*hw; math.Abs(sum-1) > 1e-9 {
				t.Fatalf("weights sum to %v for s=%d n=%d", sum, strength, n)
			}
		}
	}
	if cw, _ := Weights(100, 3); cw != 0.5 {
		t.Fatalf("full strength current weight %v", cw)
	}
}

func TestBlendStaysWithinInputBounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, strength := range []int{1, 25, 50, 75, 100} {
		s := New()
		var window []*frame.Buffer
		for i := 0; i < 6; i++ {
			in := randomFrame(t, r, 8, 5)
			window = append(window, in)
			if len(window) > MaxHistoryFrames {
				window = window[1:]
			}
			out, err := s.Process(in, strength)
			if err != nil {
				t.Fatal(err)
			}
			if len(window) < 2 {
				continue
			}
			for j, v := range out.Pix() {
				lo, hi := byte(255), byte(0)
				for _, f := range window {
					c := f.Pix()[j]
					lo, hi = min(lo, c), max(hi, c)
				}
				if v < lo || v > hi {
					t.Fatalf("s=%d byte %d = %d outside [%d,%d]", strength, j, v, lo, hi)
				}
			}
		}
	}
}

func TestOutputNotAliasedWithHistory(t *testing.T) {
	s := New()
	_, _ = s.Process(uniform(t, 2, 2, 10), 50)
	first, _ := s.Process(uniform(t, 2, 2, 20), 50)
	snapshot := first.Clone()
	for i := 0; i < 5; i++ {
		_, _ = s.Process(uniform(t, 2, 2, byte(100+i)), 50)
	}
	if !first.Equal(snapshot) {
		t.Fatalf("retained output was mutated by later calls")
	}
}

func TestParallelBlendMatchesSerial(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	frames := []*frame.Buffer{
		randomFrame(t, r, 320, 240),
		randomFrame(t, r, 320, 240),
		randomFrame(t, r, 320, 240),
	}
	par := New()
	ser := New()
	ser.workers = 1
	var a, b *frame.Buffer
	for _, f := range frames {
		a, _ = par.Process(f, 65)
		b, _ = ser.Process(f, 65)
	}
	if !a.Equal(b) {
		t.Fatalf("parallel blend differs from serial")
	}
}
