// SPDX-License-Identifier: MIT

// Package decoder supervises the external hardware-accelerated decoder
// process (omxplayer or compatible) and its control pipe. The decoder's
// internal state is opaque; this package only launches it bound to a video
// file, feeds it single-byte instructions and reports its exit.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/ManuGH/videowall/internal/log"
	"github.com/ManuGH/videowall/internal/metrics"
	"github.com/ManuGH/videowall/internal/procgroup"
	"github.com/rs/zerolog"
)

// Config describes how to run the decoder binary.
type Config struct {
	Bin       string   // decoder binary, e.g. "omxplayer"
	Audio     string   // audio output: hdmi, local or both
	ExtraArgs []string // appended before the file path
	FIFOPath  string   // control pipe location, recreated per launch

	// PreloadPauseDelay absorbs decoder startup before the preload pause is
	// sent, so the pause lands after rendering began.
	PreloadPauseDelay time.Duration
	// StopGrace bounds how long Terminate waits after the quit instruction
	// (and again after SIGTERM) before escalating.
	StopGrace time.Duration
}

// Supervisor launches decoder processes. It implements the launcher the
// playback state machine drives; each launch yields one Process handle.
type Supervisor struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates a Supervisor.
func New(cfg Config) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		logger: log.WithComponent("decoder"),
	}
}

// Launch starts the decoder bound to path with a freshly created control
// pipe. If paused, the preload pause is sent after the configured delay
// before Launch returns, so a subsequent Resume observes a paused decoder.
// onExit is invoked from the wait goroutine when the process exits on its
// own; exits caused by Terminate are not reported.
func (s *Supervisor) Launch(ctx context.Context, path string, paused bool, onExit func(error)) (*Process, error) {
	if _, err := os.Stat(path); err != nil {
		metrics.DecoderLaunchTotal.WithLabelValues("no_video").Inc()
		return nil, fmt.Errorf("video file: %w", err)
	}

	fifo, err := newControlFIFO(s.cfg.FIFOPath)
	if err != nil {
		metrics.DecoderLaunchTotal.WithLabelValues("fifo_error").Inc()
		return nil, err
	}
	ctrl := newControlChannel(fifo, s.logger)

	args := []string{"-o", s.cfg.Audio, "--no-osd", "--aspect-mode", "letterbox"}
	args = append(args, s.cfg.ExtraArgs...)
	args = append(args, path)

	cmd := exec.CommandContext(ctx, s.cfg.Bin, args...)
	cmd.Stdin = fifo
	procgroup.Set(cmd)

	s.logger.Info().
		Str("bin", s.cfg.Bin).
		Strs("args", args).
		Msg("starting decoder")

	if err := cmd.Start(); err != nil {
		ctrl.Close()
		_ = os.Remove(s.cfg.FIFOPath)
		metrics.DecoderLaunchTotal.WithLabelValues("spawn_error").Inc()
		return nil, fmt.Errorf("start decoder: %w", err)
	}
	metrics.DecoderLaunchTotal.WithLabelValues("ok").Inc()

	p := &Process{
		cmd:       cmd,
		ctrl:      ctrl,
		fifoPath:  s.cfg.FIFOPath,
		stopGrace: s.cfg.StopGrace,
		waitCh:    make(chan error, 1),
		done:      make(chan struct{}),
		logger:    s.logger.With().Int("pid", cmd.Process.Pid).Logger(),
	}
	go p.watch(onExit)

	if paused {
		time.Sleep(s.cfg.PreloadPauseDelay)
		if err := ctrl.SendPause(); err == nil {
			p.logger.Info().Msg("decoder preloaded and paused")
		}
	}

	return p, nil
}

// Process is the exclusive handle to one running decoder instance.
type Process struct {
	cmd       *exec.Cmd
	ctrl      *controlChannel
	fifoPath  string
	stopGrace time.Duration

	waitCh     chan error // receives the cmd.Wait result exactly once
	done       chan struct{}
	terminated atomic.Bool
	logger     zerolog.Logger
}

// watch reaps the process and reports unexpected exits.
func (p *Process) watch(onExit func(error)) {
	err := p.cmd.Wait()

	// Cleanup before signalling so a relaunch can recreate the fifo safely.
	p.ctrl.Close()
	_ = os.Remove(p.fifoPath)

	p.waitCh <- err
	close(p.done)

	if p.terminated.Load() {
		return
	}
	p.logger.Info().Err(err).Msg("decoder process exited")
	if onExit != nil {
		onExit(err)
	}
}

// Resume unpauses a preloaded decoder.
func (p *Process) Resume() error {
	return p.ctrl.SendResume()
}

// Terminate stops the decoder: quit instruction, bounded grace, then signal
// escalation on the whole process group. Idempotent.
func (p *Process) Terminate(ctx context.Context) error {
	if p.terminated.Swap(true) {
		<-p.done
		return nil
	}

	_ = p.ctrl.SendQuit()

	select {
	case <-p.done:
		p.logger.Debug().Msg("decoder exited on quit instruction")
		return nil
	case <-time.After(p.stopGrace):
	case <-ctx.Done():
	}

	p.logger.Warn().Msg("decoder ignored quit instruction, escalating")
	err := procgroup.Terminate(p.cmd, p.waitCh, p.stopGrace)

	// A non-zero exit or a death by signal is the expected outcome of a
	// deliberate terminate, not a failure.
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return err
	}
	return nil
}
