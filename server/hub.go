package server

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/soocke/xr-mirror-go/domain/frame"
)

var ErrNoFrame = errors.New("server: no frame yet")

// StreamHub is a mirror presenter that fans JPEG frames out to websocket
// clients. Encoding happens on the hub goroutine at most fps times per second
// and only while someone is watching; every client has a one-frame mailbox
// so a slow client skips frames instead of holding up the others.
type StreamHub struct {
	log     zerolog.Logger
	fps     int
	quality int

	latest atomic.Pointer[frame.Buffer]
	gen    atomic.Uint64

	mu      sync.Mutex
	clients map[*client]struct{}

	sent    atomic.Uint64
	skipped atomic.Uint64
}

type client struct {
	send chan []byte
}

func NewStreamHub(fps, quality int, log zerolog.Logger) *StreamHub {
	if fps <= 0 {
		fps = 30
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &StreamHub{
		log:     log.With().Str("component", "stream-hub").Logger(),
		fps:     fps,
		quality: quality,
		clients: make(map[*client]struct{}),
	}
}

// Present implements mirror.Presenter.
func (h *StreamHub) Present(fb *frame.Buffer) {
	h.latest.Store(fb)
	h.gen.Add(1)
}

// Reset drops the held frame after a size change.
func (h *StreamHub) Reset() {
	h.latest.Store(nil)
	h.gen.Add(1)
}

// Clients returns the number of connected viewers.
func (h *StreamHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Snapshot encodes the newest frame on demand.
func (h *StreamHub) Snapshot() ([]byte, error) {
	fb := h.latest.Load()
	if fb == nil {
		return nil, ErrNoFrame
	}
	return h.encode(fb)
}

// Run broadcasts until ctx ends.
func (h *StreamHub) Run(ctx context.Context) {
	t := time.NewTicker(time.Second / time.Duration(h.fps))
	defer t.Stop()
	var lastGen uint64
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
		}
		g := h.gen.Load()
		if g == lastGen || h.Clients() == 0 {
			continue
		}
		lastGen = g
		fb := h.latest.Load()
		if fb == nil {
			continue
		}
		data, err := h.encode(fb)
		if err != nil {
			h.log.Warn().Err(err).Msg("jpeg encode")
			continue
		}
		h.broadcast(data)
	}
}

func (h *StreamHub) encode(fb *frame.Buffer) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(fb.Width() * fb.Height() / 4)
	if err := jpeg.Encode(&buf, fb.RGBA(), &jpeg.Options{Quality: h.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *StreamHub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
			h.sent.Add(1)
			continue
		default:
		}
		// Mailbox full: replace the stale frame.
		select {
		case <-c.send:
			h.skipped.Add(1)
		default:
		}
		select {
		case c.send <- data:
			h.sent.Add(1)
		default:
		}
	}
}

func (h *StreamHub) register() *client {
	c := &client{send: make(chan []byte, 1)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info().Int("clients", n).Msg("viewer connected")
	return c
}

func (h *StreamHub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info().Int("clients", n).Msg("viewer disconnected")
}

func (h *StreamHub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}
