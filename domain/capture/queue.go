package capture

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/soocke/xr-mirror-go/domain/frame"
)

// Item is a queued frame tagged with the epoch it was captured in.
type Item struct {
	Frame *frame.Buffer
	Epoch uint64
}

// Queue is a bounded FIFO between the capture loop and its consumer.
// When full, Push evicts the oldest queued frame so a slow consumer always
// sees the most recent capture instead of stalling the producer.
//
// Every Flush starts a new epoch. Frames pushed with an older epoch are
// rejected, which keeps a stale or abandoned loop iteration from publishing
// after a reconfiguration.
type Queue struct {
	ch      chan Item
	mu      sync.Mutex // push vs flush
	epoch   atomic.Uint64
	dropped atomic.Uint64
	onDrop  func()
}

// NewQueue creates a queue holding up to capacity frames (minimum 1).
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Item, capacity)}
}

// OnDrop registers a callback invoked for every evicted frame.
func (q *Queue) OnDrop(fn func()) {
	q.mu.Lock()
	q.onDrop = fn
	q.mu.Unlock()
}

// Push enqueues fb. It never blocks. It returns false when epoch is stale.
func (q *Queue) Push(fb *frame.Buffer, epoch uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if epoch != q.epoch.Load() {
		return false
	}
	it := Item{Frame: fb, Epoch: epoch}
	for {
		select {
		case q.ch <- it:
			return true
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
			if q.onDrop != nil {
				q.onDrop()
			}
		default:
		}
	}
}

// Pop blocks until a frame is available or ctx ends.
func (q *Queue) Pop(ctx context.Context) (Item, bool) {
	select {
	case it := <-q.ch:
		return it, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Flush discards queued frames and starts a new epoch, which it returns.
func (q *Queue) Flush() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.epoch.Add(1)
	for {
		select {
		case <-q.ch:
		default:
			return e
		}
	}
}

// Epoch is the current epoch; items carrying another value are stale.
func (q *Queue) Epoch() uint64 { return q.epoch.Load() }

// Dropped counts frames evicted by backpressure.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) Cap() int { return cap(q.ch) }
