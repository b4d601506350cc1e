// SPDX-License-Identifier: MIT

package decoder

import (
	"errors"
	"testing"
	"time"

	"github.com/ManuGH/videowall/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipe struct {
	written []byte
	failFor int // number of leading writes that fail
	writes  int
	closed  bool
}

func (f *fakePipe) Write(p []byte) (int, error) {
	f.writes++
	if f.writes <= f.failFor {
		return 0, errors.New("write error")
	}
	f.written = append(f.written, p...)
	return len(p), nil
}

func (f *fakePipe) Close() error {
	f.closed = true
	return nil
}

func newTestChannel(w writerCloser) *controlChannel {
	c := newControlChannel(w, log.WithComponent("decoder"))
	c.backoff = time.Millisecond
	return c
}

func TestControlInstructions(t *testing.T) {
	pipe := &fakePipe{}
	c := newTestChannel(pipe)

	require.NoError(t, c.SendPause())
	require.NoError(t, c.SendResume())
	require.NoError(t, c.SendQuit())

	// Pause and resume both map to the decoder's pause toggle.
	assert.Equal(t, []byte{'p', 'p', 'q'}, pipe.written)
}

func TestControlRetriesTransientFailures(t *testing.T) {
	pipe := &fakePipe{failFor: 2}
	c := newTestChannel(pipe)

	require.NoError(t, c.SendPause())
	assert.Equal(t, []byte{'p'}, pipe.written)
	assert.Equal(t, 3, pipe.writes)
}

func TestControlGivesUpAfterRetries(t *testing.T) {
	pipe := &fakePipe{failFor: 100}
	c := newTestChannel(pipe)

	err := c.SendQuit()
	require.Error(t, err)
	assert.Empty(t, pipe.written)
	// Initial attempt plus the configured retries.
	assert.Equal(t, c.retries+1, pipe.writes)
}

func TestControlCloseFailsFast(t *testing.T) {
	pipe := &fakePipe{}
	c := newTestChannel(pipe)

	c.Close()
	assert.True(t, pipe.closed)

	err := c.SendPause()
	require.Error(t, err)
	assert.Equal(t, 0, pipe.writes)

	// Close is idempotent.
	c.Close()
}
