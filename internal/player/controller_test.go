// SPDX-License-Identifier: MIT

package player

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu         sync.Mutex
	resumed    int
	terminated int
	resumeErr  error
}

func (h *fakeHandle) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resumed++
	return h.resumeErr
}

func (h *fakeHandle) Terminate(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.terminated++
	return nil
}

func (h *fakeHandle) resumeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resumed
}

func (h *fakeHandle) terminateCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminated
}

type launchRecord struct {
	path   string
	paused bool
	handle *fakeHandle
	onExit func(error)
}

type fakeLauncher struct {
	mu        sync.Mutex
	launches  []launchRecord
	launchErr error
}

func (l *fakeLauncher) Launch(_ context.Context, path string, paused bool, onExit func(error)) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	h := &fakeHandle{}
	l.launches = append(l.launches, launchRecord{path: path, paused: paused, handle: h, onExit: onExit})
	return h, nil
}

func (l *fakeLauncher) launchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.launches)
}

func (l *fakeLauncher) launch(i int) launchRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches[i]
}

func TestPlayFromIdle(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")

	require.NoError(t, c.Play(context.Background()))

	assert.Equal(t, StatePlaying, c.State())
	require.Equal(t, 1, fl.launchCount())
	assert.Equal(t, "/tmp/current.mp4", fl.launch(0).path)
	assert.False(t, fl.launch(0).paused)
	assert.False(t, c.CanAcceptTransfer())
}

func TestLoadThenGo(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	assert.Equal(t, StateLoaded, c.State())
	require.Equal(t, 1, fl.launchCount())
	assert.True(t, fl.launch(0).paused)
	assert.False(t, c.CanAcceptTransfer())

	require.NoError(t, c.Go(ctx))
	assert.Equal(t, StatePlaying, c.State())
	assert.Equal(t, 1, fl.launch(0).handle.resumeCount())
	// GO never launches a second decoder.
	assert.Equal(t, 1, fl.launchCount())
}

func TestGoWithoutLoadIsIgnored(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")
	ctx := context.Background()

	require.NoError(t, c.Go(ctx))
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 0, fl.launchCount())

	// GO while already playing is ignored too.
	require.NoError(t, c.Play(ctx))
	require.NoError(t, c.Go(ctx))
	assert.Equal(t, StatePlaying, c.State())
	assert.Equal(t, 0, fl.launch(0).handle.resumeCount())
}

func TestStopAlwaysEndsIdle(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")
	ctx := context.Background()

	// Stop in Idle is a no-op.
	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, StateIdle, c.State())

	for _, setup := range []func() error{
		func() error { return c.Play(ctx) },
		func() error { return c.Load(ctx) },
	} {
		require.NoError(t, setup())
		require.NoError(t, c.Stop(ctx))
		assert.Equal(t, StateIdle, c.State())
		assert.True(t, c.CanAcceptTransfer())
	}

	assert.Equal(t, 1, fl.launch(0).handle.terminateCount())
	assert.Equal(t, 1, fl.launch(1).handle.terminateCount())
}

func TestPlayWhilePlayingRestartsDecoder(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")
	ctx := context.Background()

	require.NoError(t, c.Play(ctx))
	require.NoError(t, c.Play(ctx))

	assert.Equal(t, StatePlaying, c.State())
	require.Equal(t, 2, fl.launchCount())
	assert.Equal(t, 1, fl.launch(0).handle.terminateCount())
	assert.Equal(t, 0, fl.launch(1).handle.terminateCount())
}

func TestLoadWhilePlayingReplacesDecoder(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")
	ctx := context.Background()

	require.NoError(t, c.Play(ctx))
	require.NoError(t, c.Load(ctx))

	assert.Equal(t, StateLoaded, c.State())
	require.Equal(t, 2, fl.launchCount())
	assert.Equal(t, 1, fl.launch(0).handle.terminateCount())
	assert.True(t, fl.launch(1).paused)
}

func TestLaunchFailureRevertsToIdle(t *testing.T) {
	fl := &fakeLauncher{launchErr: errors.New("exec: omxplayer not found")}
	c := New(fl, "/tmp/current.mp4")

	err := c.Play(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateIdle, c.State())
	assert.True(t, c.CanAcceptTransfer())
}

func TestUnexpectedExitFallsBackToIdle(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")
	ctx := context.Background()

	require.NoError(t, c.Play(ctx))
	fl.launch(0).onExit(errors.New("exit status 1"))

	assert.Equal(t, StateIdle, c.State())
	assert.True(t, c.CanAcceptTransfer())
}

func TestStaleExitAfterStopIsIgnored(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")
	ctx := context.Background()

	require.NoError(t, c.Play(ctx))
	exit := fl.launch(0).onExit
	require.NoError(t, c.Stop(ctx))

	// The first decoder's exit report arrives after Stop already moved on.
	exit(nil)
	assert.Equal(t, StateIdle, c.State())
}

func TestStaleExitAfterRestartIsIgnored(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")
	ctx := context.Background()

	require.NoError(t, c.Play(ctx))
	exit := fl.launch(0).onExit
	require.NoError(t, c.Play(ctx))

	// A late exit report from the replaced decoder must not knock the new
	// one back to Idle.
	exit(errors.New("killed"))
	assert.Equal(t, StatePlaying, c.State())
	assert.False(t, c.CanAcceptTransfer())
}

func TestResumeFailureKeepsSystemControllable(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	fl.launch(0).handle.resumeErr = errors.New("broken pipe")

	require.NoError(t, c.Go(ctx))
	assert.Equal(t, StatePlaying, c.State())

	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, fl.launch(0).handle.terminateCount())
}

func TestDispatchRoutesCommands(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, CmdLoad))
	assert.Equal(t, StateLoaded, c.State())
	require.NoError(t, c.Dispatch(ctx, CmdGo))
	assert.Equal(t, StatePlaying, c.State())
	require.NoError(t, c.Dispatch(ctx, CmdStop))
	assert.Equal(t, StateIdle, c.State())
	require.NoError(t, c.Dispatch(ctx, CmdPlay))
	assert.Equal(t, StatePlaying, c.State())
}

func TestConcurrentCommandsKeepSingleDecoder(t *testing.T) {
	fl := &fakeLauncher{}
	c := New(fl, "/tmp/current.mp4")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Play(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, StatePlaying, c.State())
	// Every launch but the survivor must have been terminated.
	terminated := 0
	for i := 0; i < fl.launchCount(); i++ {
		terminated += fl.launch(i).handle.terminateCount()
	}
	assert.Equal(t, fl.launchCount()-1, terminated)
}
