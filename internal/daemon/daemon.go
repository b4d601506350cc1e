// SPDX-License-Identifier: MIT

// Package daemon wires the videowall components together and owns their
// lifecycle. It is the only place holding references to both listeners;
// they share nothing but the playback state machine.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/videowall/internal/api"
	"github.com/ManuGH/videowall/internal/config"
	"github.com/ManuGH/videowall/internal/decoder"
	"github.com/ManuGH/videowall/internal/health"
	"github.com/ManuGH/videowall/internal/history"
	"github.com/ManuGH/videowall/internal/log"
	"github.com/ManuGH/videowall/internal/player"
	"github.com/ManuGH/videowall/internal/transfer"
	"github.com/ManuGH/videowall/internal/trigger"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ShutdownHook performs cleanup during graceful shutdown. Hooks run in
// reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// Daemon is the assembled videowall node.
type Daemon struct {
	cfg        config.AppConfig
	controller *player.Controller
	trigger    *trigger.Listener
	transfer   *transfer.Server
	httpServer *http.Server
	hooks      []namedHook
	logger     zerolog.Logger
}

// launcherAdapter bridges the concrete supervisor to the state machine's
// launcher interface without handing the state machine a typed nil.
type launcherAdapter struct {
	sup *decoder.Supervisor
}

func (a launcherAdapter) Launch(ctx context.Context, path string, paused bool, onExit func(error)) (player.Handle, error) {
	p, err := a.sup.Launch(ctx, path, paused, onExit)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// New builds a Daemon from configuration.
func New(cfg config.AppConfig, version string) (*Daemon, error) {
	logger := log.WithComponent("daemon")

	videoPath := cfg.CurrentVideoPath()
	if err := os.MkdirAll(filepath.Dir(videoPath), 0o755); err != nil {
		return nil, fmt.Errorf("create video directory: %w", err)
	}

	fifoDir := cfg.DataDir
	if fifoDir == "" {
		fifoDir = filepath.Dir(videoPath)
	}

	sup := decoder.New(decoder.Config{
		Bin:               cfg.PlayerBin,
		Audio:             cfg.PlayerAudio,
		ExtraArgs:         cfg.PlayerExtraArgs,
		FIFOPath:          filepath.Join(fifoDir, "decoder.fifo"),
		PreloadPauseDelay: cfg.PreloadPauseDelay,
		StopGrace:         cfg.StopGrace,
	})

	d := &Daemon{cfg: cfg, logger: logger}

	var (
		playerOpts   []player.Option
		transferOpts []transfer.Option
		events       api.EventSource
	)
	if cfg.EventDBPath() != "" {
		store, err := history.NewStore(cfg.EventDBPath())
		if err != nil {
			return nil, fmt.Errorf("open event journal: %w", err)
		}
		playerOpts = append(playerOpts, player.WithRecorder(store))
		transferOpts = append(transferOpts, transfer.WithRecorder(store))
		events = store
		d.RegisterShutdownHook("event journal", func(context.Context) error {
			return store.Close()
		})
	}

	d.controller = player.New(launcherAdapter{sup}, videoPath, playerOpts...)

	d.trigger = trigger.NewListener(
		cfg.MulticastGroup, cfg.MulticastPort, cfg.MulticastInterface, d.controller)

	d.transfer = transfer.NewServer(transfer.Config{
		Port:     cfg.TransferPort,
		DestPath: videoPath,
		MaxBytes: cfg.TransferMaxBytes,
		Timeout:  cfg.TransferTimeout,
	}, d.controller, transferOpts...)

	if cfg.ListenAddr != "" {
		hm := health.NewManager(version)
		hm.RegisterChecker(&health.VideoFileChecker{Path: videoPath})
		hm.RegisterChecker(&health.DecoderBinChecker{Bin: cfg.PlayerBin})

		apiServer := api.NewServer(d.controller, events, hm, videoPath, version)
		d.httpServer = &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      apiServer.Router(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
	}

	return d, nil
}

// Controller exposes the state machine (used by tests and the status CLI).
func (d *Daemon) Controller() *player.Controller {
	return d.controller
}

// ApplyConfig applies the live-applicable subset of a reloaded
// configuration. Ports, paths and the decoder command line need a restart;
// the transfer limits take effect for the next connection.
func (d *Daemon) ApplyConfig(cfg config.AppConfig) {
	d.transfer.ApplyLimits(cfg.TransferMaxBytes, cfg.TransferTimeout)
	d.logger.Info().
		Str("event", "config.applied").
		Int64("transfer_max_bytes", cfg.TransferMaxBytes).
		Dur("transfer_timeout", cfg.TransferTimeout).
		Msg("applied reloaded configuration")
}

// RegisterShutdownHook registers a cleanup function (LIFO order).
func (d *Daemon) RegisterShutdownHook(name string, hook ShutdownHook) {
	d.hooks = append(d.hooks, namedHook{name: name, hook: hook})
}

// Run starts all listeners and blocks until ctx is cancelled or a listener
// fails to start. Shutdown stops playback before running the hooks.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info().
		Str("video", d.cfg.CurrentVideoPath()).
		Str("multicast", fmt.Sprintf("%s:%d", d.cfg.MulticastGroup, d.cfg.MulticastPort)).
		Int("transfer_port", d.cfg.TransferPort).
		Str("listen", d.cfg.ListenAddr).
		Msg("starting videowall daemon")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.trigger.Run(gctx) })
	g.Go(func() error { return d.transfer.Run(gctx) })

	if d.httpServer != nil {
		g.Go(func() error {
			err := d.httpServer.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return d.httpServer.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()

	d.shutdown()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (d *Daemon) shutdown() {
	d.logger.Info().Msg("shutting down")

	// Stop playback first so the decoder never outlives the daemon.
	stopCtx, cancel := context.WithTimeout(context.Background(), 3*d.cfg.StopGrace)
	defer cancel()
	if err := d.controller.Stop(stopCtx); err != nil {
		d.logger.Warn().Err(err).Msg("stop playback during shutdown")
	}

	for i := len(d.hooks) - 1; i >= 0; i-- {
		h := d.hooks[i]
		if err := h.hook(stopCtx); err != nil {
			d.logger.Warn().Err(err).Str("hook", h.name).Msg("shutdown hook failed")
		}
	}
	d.logger.Info().Msg("shutdown complete")
}
