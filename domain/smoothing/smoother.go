package smoothing

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/soocke/xr-mirror-go/domain/frame"
)

// MaxHistoryFrames bounds the blend window, current frame included.
const MaxHistoryFrames = 3

var (
	ErrDimensionMismatch = errors.New("smoothing: frame size differs from history")
	ErrInvalidArgument   = errors.New("smoothing: invalid argument")
)

// Below this many bytes the blend runs on the calling goroutine.
const parallelThreshold = 256 * 1024

// Smoother blends each new frame with the frames that preceded it.
//
// The newest frame keeps 1 - s/200 of the weight (s = strength); the rest is
// split evenly over the older history entries. With history partially filled
// each older frame therefore gets a larger share than with a full window.
//
// When strength is 0 the input is returned unchanged and history is left
// untouched, so raising strength again resumes from the frames seen before
// smoothing was switched off. Process and ClearHistory share one mutex and may
// be called from different goroutines.
type Smoother struct {
	mu      sync.Mutex
	history [][]byte // oldest first
	width   int
	height  int
	spare   []byte // evicted history slot, reused for the next copy
	workers int
}

func New() *Smoother {
	return &Smoother{workers: runtime.NumCPU()}
}

// Weights returns the per-frame weights for a strength and history size.
// historyWeight is zero when historyCount < 2.
func Weights(strength, historyCount int) (currentWeight, historyWeight float64) {
	s := float64(strength) / 100.0
	currentWeight = 1.0 - s*0.5
	if historyCount > 1 {
		historyWeight = s * 0.5 / float64(historyCount-1)
	}
	return currentWeight, historyWeight
}

// Process pushes fb into history and returns the blended frame. The result is
// always a new buffer when blending happens; it is fb itself otherwise.
func (s *Smoother) Process(fb *frame.Buffer, strength int) (*frame.Buffer, error) {
	if strength < 0 || strength > 100 {
		return nil, fmt.Errorf("%w: strength %d outside [0,100]", ErrInvalidArgument, strength)
	}
	if fb == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrInvalidArgument)
	}
	if strength == 0 {
		return fb, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) > 0 && (fb.Width() != s.width || fb.Height() != s.height) {
		return nil, fmt.Errorf("%w: got %dx%d, history holds %dx%d",
			ErrDimensionMismatch, fb.Width(), fb.Height(), s.width, s.height)
	}
	s.push(fb)
	if len(s.history) < 2 {
		return fb, nil
	}

	cw, hw := Weights(strength, len(s.history))
	out := make([]byte, len(fb.Pix()))
	s.blend(out, fb.Pix(), s.history[:len(s.history)-1], cw, hw)
	return fb.Derive(out)
}

// ClearHistory empties the blend window.
func (s *Smoother) ClearHistory() {
	s.mu.Lock()
	s.history = s.history[:0]
	s.spare = nil
	s.width, s.height = 0, 0
	s.mu.Unlock()
}

// HistoryLen reports how many frames are held.
func (s *Smoother) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// push stores a private copy of fb, evicting the oldest entry when full.
func (s *Smoother) push(fb *frame.Buffer) {
	src := fb.Pix()
	if len(s.history) == MaxHistoryFrames {
		s.spare = s.history[0]
		copy(s.history, s.history[1:])
		s.history = s.history[:MaxHistoryFrames-1]
	}
	buf := s.spare
	s.spare = nil
	if len(buf) != len(src) {
		buf = make([]byte, len(src))
	}
	copy(buf, src)
	s.history = append(s.history, buf)
	s.width, s.height = fb.Width(), fb.Height()
}

// blend writes the weighted sum into dst. Older frames share one weight, so
// their channels are summed as integers before scaling.
func (s *Smoother) blend(dst, cur []byte, older [][]byte, cw, hw float64) {
	n := len(dst)
	workers := s.workers
	if n < parallelThreshold || workers < 2 {
		blendRange(dst, cur, older, cw, hw, 0, n)
		return
	}
	chunk := (n/workers + frame.BytesPerPixel - 1) / frame.BytesPerPixel * frame.BytesPerPixel
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			blendRange(dst, cur, older, cw, hw, lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

func blendRange(dst, cur []byte, older [][]byte, cw, hw float64, lo, hi int) {
	for i := lo; i < hi; i++ {
		sum := 0
		for _, h := range older {
			sum += int(h[i])
		}
		dst[i] = clampByte(float64(cur[i])*cw + float64(sum)*hw)
	}
}

func clampByte(v float64) byte {
	v = math.RoundToEven(v)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}
