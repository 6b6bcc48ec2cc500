package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// fakeBackend produces uniform frames and lets tests script failures.
type fakeBackend struct {
	mu          sync.Mutex
	available   bool
	connectErr  error
	pullErrs    []error // consumed one per Pull before succeeding
	lostAfter   int     // >0: return ErrSessionLost on that pull number
	supported   map[[2]int]bool
	pullDelay   time.Duration
	connects    int
	disconnects int
	nextHandle  Handle
	appName     string
	appVersion  uint32
	lastReq     PullRequest

	pulls atomic.Int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		available: true,
		supported: map[[2]int]bool{{1920, 1080}: true, {1280, 720}: true, {4, 2}: true, {2, 2}: true},
	}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) ProbeAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeBackend) Connect(appName string, appVersion uint32) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.appName, f.appVersion = appName, appVersion
	if f.connectErr != nil {
		return 0, f.connectErr
	}
	f.nextHandle++
	return f.nextHandle, nil
}

func (f *fakeBackend) Disconnect(Handle) error {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) SupportsResolution(w, h int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.supported[[2]int{w, h}]
}

func (f *fakeBackend) Pull(ctx context.Context, _ Handle, req PullRequest) (RawFrame, error) {
	n := f.pulls.Add(1)
	f.mu.Lock()
	f.lastReq = req
	delay := f.pullDelay
	var err error
	if f.lostAfter > 0 && int(n) >= f.lostAfter {
		err = ErrSessionLost
	} else if len(f.pullErrs) > 0 {
		err = f.pullErrs[0]
		f.pullErrs = f.pullErrs[1:]
	}
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return RawFrame{}, ctx.Err()
		}
	}
	if err != nil {
		return RawFrame{}, err
	}
	pix := make([]byte, req.Width*req.Height*4)
	for i := range pix {
		pix[i] = byte(req.Width)
	}
	return RawFrame{Pix: pix, Width: req.Width, Height: req.Height}, nil
}

func (f *fakeBackend) setPullDelay(d time.Duration) {
	f.mu.Lock()
	f.pullDelay = d
	f.mu.Unlock()
}

func (f *fakeBackend) setLostAfter(n int) {
	f.mu.Lock()
	f.lostAfter = n
	f.mu.Unlock()
}

var _ Backend = (*fakeBackend)(nil)

var errFlaky = errors.New("flaky device")

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
