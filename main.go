package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/soocke/xr-mirror-go/app"
	"github.com/soocke/xr-mirror-go/config"
	"github.com/soocke/xr-mirror-go/debug"
	"github.com/soocke/xr-mirror-go/service"
)

const debugLogInterval = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	flags := config.WithFlags(pflag.CommandLine)
	pflag.Parse()

	boot := NewLogger(false, flags.ConsoleLog)
	path := flags.ConfigPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			boot.Warn().Err(err).Msg("no settings directory; settings will not persist")
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		ev := boot.Warn()
		if errors.Is(err, config.ErrLoad) {
			ev = boot.Error()
		}
		ev.Err(err).Str("path", path).Msg("settings")
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		boot.Warn().Err(err).Msg("flags")
	}

	log := NewLogger(cfg.Debug, flags.ConsoleLog)
	log.Info().
		Str("resolution", cfg.Resolution.String()).
		Str("eye", cfg.EyeSelection.String()).
		Bool("smoothing", cfg.SmoothingEnabled).
		Int("strength", cfg.SmoothingStrength).
		Str("backend", cfg.Capture.Backend).
		Msg("starting " + app.Title)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Debug {
		debug.StartGoroutineLogger(ctx, log, debugLogInterval)
		debug.StartMemStatsLogger(ctx, log, debugLogInterval)
	}

	svc, err := service.Build(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("build")
		return 1
	}

	if flags.Headless {
		if w := watch(path, log, func(next *config.Config) {
			if err := svc.Pipeline.Apply(next.Pipeline()); err != nil {
				log.Error().Err(err).Msg("apply reloaded settings")
			}
		}); w != nil {
			defer w.Close()
		}
		if err := service.RunHeadless(ctx, svc); err != nil {
			log.Error().Err(err).Msg("headless")
			return 1
		}
		return 0
	}

	a := app.NewApp(cfg, path, svc, log)
	if w := watch(path, log, a.Reload); w != nil {
		defer w.Close()
	}
	a.Start()
	return 0
}

func watch(path string, log zerolog.Logger, onChange func(*config.Config)) *config.Watcher {
	if path == "" {
		return nil
	}
	w, err := config.Watch(path, log, onChange)
	if err != nil {
		log.Warn().Err(err).Msg("settings watcher disabled")
		return nil
	}
	return w
}
