// SPDX-License-Identifier: MIT

package player

import (
	"context"
	"sync"

	"github.com/ManuGH/videowall/internal/log"
	"github.com/ManuGH/videowall/internal/metrics"
	"github.com/rs/zerolog"
)

// Handle is the controller's exclusive grip on a running decoder process.
// Exactly one Handle exists while the state is Loaded or Playing.
type Handle interface {
	// Resume unpauses a preloaded decoder. Best effort: a failed resume is
	// logged by the caller, never fatal.
	Resume() error
	// Terminate stops the decoder, forcibly after a bounded grace period.
	Terminate(ctx context.Context) error
}

// Launcher starts decoder processes. onExit is invoked asynchronously when
// the process exits on its own; exits caused by Terminate are not reported.
type Launcher interface {
	Launch(ctx context.Context, path string, paused bool, onExit func(error)) (Handle, error)
}

// Recorder receives notable playback events for the journal. Implemented by
// history.Store; a nil Recorder disables recording.
type Recorder interface {
	RecordEvent(ctx context.Context, kind, detail, outcome string)
}

// Controller is the playback state machine.
//
// Two locks: mu guards the in-memory state and is the admission boundary
// shared with the transfer server; it is never held across process launch or
// termination. opMu serializes whole commands so that a LOAD immediately
// followed by GO observes the pause already sent, and so two PLAY commands
// cannot race a double launch.
type Controller struct {
	opMu sync.Mutex

	mu     sync.Mutex
	state  State
	handle Handle
	gen    uint64 // bumped on every launch/stop; stale exit reports carry an old gen

	launcher  Launcher
	videoPath string
	recorder  Recorder
	logger    zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder attaches an event recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// New creates a Controller in the Idle state. videoPath names the current
// video file handed to the decoder on Play/Load.
func New(launcher Launcher, videoPath string, opts ...Option) *Controller {
	c := &Controller{
		launcher:  launcher,
		videoPath: videoPath,
		logger:    log.WithComponent("player"),
	}
	for _, opt := range opts {
		opt(c)
	}
	metrics.SetPlaybackState(StateIdle.String(), StateNames())
	return c
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CanAcceptTransfer reports whether a file transfer may start. True only in
// Idle; this is the sole synchronization point between transfers and
// playback.
func (c *Controller) CanAcceptTransfer() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateIdle
}

// Dispatch applies a parsed trigger command.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd {
	case CmdPlay:
		return c.Play(ctx)
	case CmdStop:
		return c.Stop(ctx)
	case CmdLoad:
		return c.Load(ctx)
	case CmdGo:
		return c.Go(ctx)
	}
	return nil
}

// Play starts playback of the current video. A decoder that is already
// running (Playing or Loaded) is terminated first and replaced.
func (c *Controller) Play(ctx context.Context) error {
	return c.start(ctx, CmdPlay, false)
}

// Load preloads the current video: the decoder is launched and paused
// immediately so that a later Go starts rendering with minimal latency.
func (c *Controller) Load(ctx context.Context) error {
	return c.start(ctx, CmdLoad, true)
}

func (c *Controller) start(ctx context.Context, cmd Command, paused bool) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	target := StatePlaying
	if paused {
		target = StateLoaded
	}

	// State transitions under the lock, side effects after it.
	c.mu.Lock()
	old := c.handle
	prev := c.state
	c.handle = nil
	c.state = target
	c.gen++
	gen := c.gen
	c.mu.Unlock()
	c.observeState(prev, target)

	if old != nil {
		c.logger.Info().
			Str("event", "player.restart").
			Str("old_state", prev.String()).
			Msg("terminating decoder before relaunch")
		if err := old.Terminate(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("terminate before relaunch")
		}
		metrics.DecoderExitTotal.WithLabelValues("stopped").Inc()
	}

	h, err := c.launcher.Launch(ctx, c.videoPath, paused, func(exitErr error) {
		c.handleDecoderExit(gen, exitErr)
	})
	if err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		c.observeState(target, StateIdle)
		c.logger.Error().
			Err(err).
			Str("event", "player.launch_failed").
			Str("path", c.videoPath).
			Msg("decoder launch failed")
		metrics.IncCommand(cmd.String(), "error")
		c.record(ctx, "command", cmd.String(), "launch_failed")
		return err
	}

	// Publish the handle unless the process already exited underneath us
	// (the exit callback bumps the generation).
	c.mu.Lock()
	if c.gen == gen {
		c.handle = h
	}
	c.mu.Unlock()

	c.logger.Info().
		Str("event", "player.started").
		Str("path", c.videoPath).
		Bool("paused", paused).
		Msg("decoder launched")
	metrics.IncCommand(cmd.String(), "ok")
	c.record(ctx, "command", cmd.String(), "ok")
	return nil
}

// Go unpauses a preloaded decoder. Ignored in any state but Loaded.
func (c *Controller) Go(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.state != StateLoaded {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug().
			Str("state", state.String()).
			Msg("GO ignored (nothing loaded)")
		metrics.IncCommand(CmdGo.String(), "ignored")
		return nil
	}
	h := c.handle
	c.state = StatePlaying
	c.mu.Unlock()
	c.observeState(StateLoaded, StatePlaying)

	if err := h.Resume(); err != nil {
		// Best effort: the decoder stays paused but the system remains
		// controllable; a later STOP cleans up.
		c.logger.Error().Err(err).Str("event", "player.resume_failed").Msg("resume failed")
		metrics.IncCommand(CmdGo.String(), "error")
		c.record(ctx, "command", CmdGo.String(), "resume_failed")
		return nil
	}

	c.logger.Info().Str("event", "player.go").Msg("playback resumed")
	metrics.IncCommand(CmdGo.String(), "ok")
	c.record(ctx, "command", CmdGo.String(), "ok")
	return nil
}

// Stop terminates any running decoder and returns to Idle. Stop in Idle is a
// no-op. The state transitions before the terminate side effect completes.
func (c *Controller) Stop(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	old := c.handle
	prev := c.state
	c.handle = nil
	c.state = StateIdle
	c.gen++
	c.mu.Unlock()

	if old == nil {
		metrics.IncCommand(CmdStop.String(), "ignored")
		return nil
	}
	c.observeState(prev, StateIdle)

	if err := old.Terminate(ctx); err != nil {
		c.logger.Warn().Err(err).Str("event", "player.stop_error").Msg("decoder terminate")
	}
	metrics.DecoderExitTotal.WithLabelValues("stopped").Inc()
	c.logger.Info().
		Str("event", "player.stopped").
		Str("old_state", prev.String()).
		Msg("playback stopped")
	metrics.IncCommand(CmdStop.String(), "ok")
	c.record(ctx, "command", CmdStop.String(), "ok")
	return nil
}

// handleDecoderExit handles an unexpected decoder exit: release the handle
// and fall back to Idle so the system stays controllable. Exit reports from
// a launch generation that has already been replaced or stopped are ignored.
func (c *Controller) handleDecoderExit(gen uint64, exitErr error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.handle = nil
	c.state = StateIdle
	c.gen++
	c.mu.Unlock()
	c.observeState(prev, StateIdle)

	c.logger.Warn().
		Err(exitErr).
		Str("event", "player.decoder_exited").
		Str("old_state", prev.String()).
		Msg("decoder exited unexpectedly")
	metrics.DecoderExitTotal.WithLabelValues("unexpected").Inc()
	c.record(context.Background(), "decoder", "exit", "unexpected")
}

func (c *Controller) observeState(old, newState State) {
	if old == newState {
		return
	}
	metrics.SetPlaybackState(newState.String(), StateNames())
	c.logger.Debug().
		Str("old_state", old.String()).
		Str("new_state", newState.String()).
		Msg("state transition")
}

func (c *Controller) record(ctx context.Context, kind, detail, outcome string) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordEvent(ctx, kind, detail, outcome)
}
