package debug

// Runtime loggers started only in debug mode. They exist to rule out goroutine
// or native memory growth while the capture loop runs for hours.

import (
	"context"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// StartGoroutineLogger logs goroutine count and stack memory every interval
// until ctx is done.
func StartGoroutineLogger(ctx context.Context, log zerolog.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			metrics.Read(samples)
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			log.Debug().
				Uint64("goroutines", samples[0].Value.Uint64()).
				Str("stack_inuse", humanize.IBytes(ms.StackInuse)).
				Str("stack_sys", humanize.IBytes(ms.StackSys)).
				Str("heap_alloc", humanize.IBytes(ms.HeapAlloc)).
				Msg("goroutine-stacks")
		}
	}()
}
