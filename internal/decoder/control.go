// SPDX-License-Identifier: MIT

package decoder

import (
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/videowall/internal/metrics"
	"github.com/rs/zerolog"
)

// Decoder control instructions. The decoder toggles pause on 'p', so pause
// and resume share the same byte; the state machine guarantees ordering.
const (
	instrPause  = "pause"
	instrResume = "resume"
	instrQuit   = "quit"
)

var instrBytes = map[string][]byte{
	instrPause:  {'p'},
	instrResume: {'p'},
	instrQuit:   {'q'},
}

// controlChannel is the half-duplex command pipe into the decoder process.
// Writes are fire and forget: there is no acknowledgement from the decoder,
// and a failed write is reported to metrics and the log, never escalated.
type controlChannel struct {
	mu     sync.Mutex
	w      writerCloser
	logger zerolog.Logger

	retries int
	backoff time.Duration
}

type writerCloser interface {
	Write(p []byte) (int, error)
	Close() error
}

func newControlChannel(w writerCloser, logger zerolog.Logger) *controlChannel {
	return &controlChannel{
		w:       w,
		logger:  logger,
		retries: 3,
		backoff: 50 * time.Millisecond,
	}
}

// SendPause pauses playback.
func (c *controlChannel) SendPause() error { return c.send(instrPause) }

// SendResume unpauses playback.
func (c *controlChannel) SendResume() error { return c.send(instrResume) }

// SendQuit asks the decoder to exit.
func (c *controlChannel) SendQuit() error { return c.send(instrQuit) }

func (c *controlChannel) send(instr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.w == nil {
		metrics.IncControlWrite(instr, "closed")
		return fmt.Errorf("control channel closed")
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(c.backoff)
		}
		if _, lastErr = c.w.Write(instrBytes[instr]); lastErr == nil {
			metrics.IncControlWrite(instr, "ok")
			return nil
		}
	}

	c.logger.Error().
		Err(lastErr).
		Str("instruction", instr).
		Msg("control channel write failed")
	metrics.IncControlWrite(instr, "error")
	return fmt.Errorf("control write %s: %w", instr, lastErr)
}

// Close releases the write end. Subsequent sends fail fast.
func (c *controlChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w != nil {
		_ = c.w.Close()
		c.w = nil
	}
}
