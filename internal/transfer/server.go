// SPDX-License-Identifier: MIT

// Package transfer accepts replacement video uploads over TCP. One
// connection is one attempt: READY/BUSY admission, an 8-byte big-endian
// length, the payload, then OK or ERROR. The current video is only ever
// replaced by an atomic rename after the full payload arrived.
package transfer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/ManuGH/videowall/internal/log"
	"github.com/ManuGH/videowall/internal/metrics"
	"github.com/ManuGH/videowall/internal/player"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Wire protocol literals.
var (
	respReady = []byte("READY\n")
	respBusy  = []byte("BUSY\n")
	respOK    = []byte("OK\n")
	respError = []byte("ERROR\n")
)

const headerLen = 8

// ErrTooLarge rejects declared lengths above the configured maximum.
var ErrTooLarge = errors.New("declared transfer length exceeds maximum")

// Admitter is the state machine's admission query.
type Admitter interface {
	CanAcceptTransfer() bool
}

// Config holds the transfer server settings.
type Config struct {
	Port     int
	DestPath string        // the current video file, replaced atomically
	MaxBytes int64         // sane upper bound for a declared length
	Timeout  time.Duration // overall per-connection deadline
}

// Server is the TCP file transfer server.
type Server struct {
	cfg      Config
	admitter Admitter
	recorder player.Recorder // optional event journal
	logger   zerolog.Logger

	// Limits are read per connection so config reloads apply without
	// restarting the listener.
	maxBytes atomic.Int64
	timeout  atomic.Int64 // nanoseconds

	// receiving guarantees at most one transfer session even when several
	// clients connect while the state machine is Idle.
	receiving atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithRecorder attaches an event recorder.
func WithRecorder(r player.Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// NewServer creates a transfer server. admitter is the playback state
// machine; transfers are admitted only while it reports Idle.
func NewServer(cfg Config, admitter Admitter, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		admitter: admitter,
		logger:   log.WithComponent("transfer"),
	}
	s.maxBytes.Store(cfg.MaxBytes)
	s.timeout.Store(int64(cfg.Timeout))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyLimits updates the per-connection limits at runtime (config reload).
// An in-flight transfer keeps the limits it started with.
func (s *Server) ApplyLimits(maxBytes int64, timeout time.Duration) {
	if maxBytes > 0 {
		s.maxBytes.Store(maxBytes)
	}
	if timeout > 0 {
		s.timeout.Store(int64(timeout))
	}
}

// Limits returns the current per-connection limits.
func (s *Server) Limits() (maxBytes int64, timeout time.Duration) {
	return s.maxBytes.Load(), time.Duration(s.timeout.Load())
}

// Run accepts connections until ctx is cancelled. Individual connection
// failures are logged and never end the accept loop.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen tcp :%d: %w", s.cfg.Port, err)
	}

	closeOnce := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-closeOnce:
		}
	}()
	defer close(closeOnce)

	s.logger.Info().
		Int("port", s.cfg.Port).
		Str("dest", s.cfg.DestPath).
		Msg("file transfer server listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info().Msg("file transfer server stopped")
				return nil
			}
			s.logger.Error().Err(err).Msg("accept error")
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	sessionID := uuid.NewString()
	logger := s.logger.With().
		Str("session_id", sessionID).
		Str("remote", conn.RemoteAddr().String()).
		Logger()

	_ = conn.SetDeadline(time.Now().Add(time.Duration(s.timeout.Load())))

	// Admission: the state machine must be Idle and no other session may be
	// in flight. Admission is checked once; a later playback command does
	// not abort a running transfer (state can only move away from Idle by
	// explicit command, and the final rename is atomic either way).
	if !s.admitter.CanAcceptTransfer() || !s.receiving.CompareAndSwap(false, true) {
		logger.Warn().Msg("rejecting transfer (not idle)")
		metrics.IncTransfer("busy")
		s.record(ctx, "transfer", sessionID, "busy")
		_, _ = conn.Write(respBusy)
		return
	}
	defer s.receiving.Store(false)

	if _, err := conn.Write(respReady); err != nil {
		logger.Error().Err(err).Msg("write READY")
		metrics.IncTransfer("error")
		return
	}

	start := time.Now()
	size, err := s.receive(conn, logger)
	if err != nil {
		logger.Error().Err(err).Msg("transfer failed")
		metrics.IncTransfer("error")
		s.record(ctx, "transfer", sessionID, "error")
		_, _ = conn.Write(respError)
		return
	}

	logger.Info().
		Int64("bytes", size).
		Dur("duration", time.Since(start)).
		Str("dest", s.cfg.DestPath).
		Msg("video file replaced")
	metrics.IncTransfer("ok")
	metrics.TransferBytes.Add(float64(size))
	metrics.TransferDuration.Observe(time.Since(start).Seconds())
	s.record(ctx, "transfer", sessionID, "ok")
	_, _ = conn.Write(respOK)
}

// receive reads the length header and payload into a pending file and
// atomically replaces the destination on success. On any error the pending
// file is discarded and the destination stays untouched.
func (s *Server) receive(conn net.Conn, logger zerolog.Logger) (int64, error) {
	var header [headerLen]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return 0, fmt.Errorf("read length header: %w", err)
	}
	declared := binary.BigEndian.Uint64(header[:])

	// Zero is a valid declared length: the current video becomes empty.
	maxBytes := s.maxBytes.Load()
	if declared > uint64(maxBytes) {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooLarge, declared, maxBytes)
	}
	size := int64(declared)

	logger.Info().Int64("bytes", size).Msg("receiving video file")

	// renameio stages the payload next to the destination so the rename
	// stays on one filesystem, and cleans up the temp file on error.
	pending, err := renameio.NewPendingFile(s.cfg.DestPath)
	if err != nil {
		return 0, fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err := io.CopyN(pending, conn, size); err != nil {
		return 0, fmt.Errorf("read payload: %w", err)
	}

	// fsync + rename: the destination is never observed half written.
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return 0, fmt.Errorf("replace %s: %w", s.cfg.DestPath, err)
	}
	return size, nil
}

func (s *Server) record(ctx context.Context, kind, detail, outcome string) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordEvent(ctx, kind, detail, outcome)
}
