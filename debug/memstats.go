package debug

import (
	"context"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// StartMemStatsLogger logs the process working set next to Go heap stats
// every interval until ctx is done, to correlate native and heap growth. A
// failing working-set query is logged once and then reported as zero.
func StartMemStatsLogger(ctx context.Context, log zerolog.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var rssErrLogged bool
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			rss, err := residentSet()
			if err != nil && !rssErrLogged {
				log.Warn().Err(err).Msg("memstats: working set unavailable")
				rssErrLogged = true
			}
			log.Debug().
				Int("goroutines", runtime.NumGoroutine()).
				Str("heap_alloc", humanize.IBytes(ms.HeapAlloc)).
				Str("heap_inuse", humanize.IBytes(ms.HeapInuse)).
				Str("heap_idle", humanize.IBytes(ms.HeapIdle)).
				Str("heap_sys", humanize.IBytes(ms.HeapSys)).
				Str("next_gc", humanize.IBytes(ms.NextGC)).
				Str("rss", humanize.IBytes(rss)).
				Uint32("num_gc", ms.NumGC).
				Msg("memstats")
		}
	}()
}
