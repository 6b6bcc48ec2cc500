package config

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultWatchDebounce = 250 * time.Millisecond

// Watcher reloads the settings file when it changes on disk and hands the
// fresh config to a callback. Editors usually replace files via rename, so the
// parent directory is watched and events are filtered by name.
type Watcher struct {
	path     string
	log      zerolog.Logger
	onChange func(*Config)
	debounce time.Duration

	w    *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Watch starts watching path. Call Close to stop.
func Watch(path string, log zerolog.Logger, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	cw := &Watcher{
		path:     filepath.Clean(path),
		log:      log.With().Str("component", "config-watch").Logger(),
		onChange: onChange,
		debounce: defaultWatchDebounce,
		w:        fw,
		done:     make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	defer cw.wg.Done()
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-cw.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(cw.debounce)
			} else {
				timer.Reset(cw.debounce)
			}
			fire = timer.C
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			cw.log.Warn().Err(err).Msg("watch error")
		case <-fire:
			fire = nil
			cw.reload()
		}
	}
}

func (cw *Watcher) reload() {
	cfg, err := Load(cw.path)
	if errors.Is(err, ErrLoad) {
		cw.log.Warn().Err(err).Msg("settings reload skipped")
		return
	}
	if err != nil {
		cw.log.Warn().Err(err).Msg("settings reload")
	}
	if cw.onChange == nil {
		return
	}
	cw.log.Debug().Str("path", cw.path).Msg("settings changed")
	cw.onChange(cfg)
}

// Close stops the watcher and waits for the event goroutine.
func (cw *Watcher) Close() error {
	var err error
	cw.once.Do(func() {
		close(cw.done)
		err = cw.w.Close()
		cw.wg.Wait()
	})
	return err
}
