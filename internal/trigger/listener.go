// SPDX-License-Identifier: MIT

// Package trigger receives multicast command datagrams and drives the
// playback state machine. Delivery is fire and forget: no acknowledgement
// is sent and a lost datagram is indistinguishable from a dropped one.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/ManuGH/videowall/internal/log"
	"github.com/ManuGH/videowall/internal/metrics"
	"github.com/ManuGH/videowall/internal/player"
	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"
	"golang.org/x/time/rate"
)

// maxDatagram bounds a command datagram; anything longer is malformed.
const maxDatagram = 1024

// Dispatcher is the slice of the state machine the listener needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd player.Command) error
}

// Listener joins a multicast group and applies received commands.
type Listener struct {
	group      string
	port       int
	ifaceName  string // empty = default interface
	dispatcher Dispatcher
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewListener creates a multicast command listener. The limiter guards
// against datagram floods; excess commands are dropped and counted.
func NewListener(group string, port int, ifaceName string, d Dispatcher) *Listener {
	return &Listener{
		group:      group,
		port:       port,
		ifaceName:  ifaceName,
		dispatcher: d,
		limiter:    rate.NewLimiter(rate.Limit(20), 40),
		logger:     log.WithComponent("trigger"),
	}
}

// Run joins the group and receives datagrams until ctx is cancelled.
// Malformed or unknown payloads are discarded and logged, never returned as
// errors; only socket setup failures and ctx cancellation end the loop.
func (l *Listener) Run(ctx context.Context) error {
	groupIP := net.ParseIP(l.group)
	if groupIP == nil || groupIP.To4() == nil {
		return fmt.Errorf("invalid multicast group %q", l.group)
	}

	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", l.port))
	if err != nil {
		return fmt.Errorf("listen udp :%d: %w", l.port, err)
	}
	defer func() { _ = conn.Close() }()

	pc := ipv4.NewPacketConn(conn)
	iface, err := l.resolveInterface()
	if err != nil {
		return err
	}
	if err := pc.JoinGroup(iface, &net.UDPAddr{IP: groupIP}); err != nil {
		return fmt.Errorf("join multicast group %s: %w", l.group, err)
	}
	defer func() { _ = pc.LeaveGroup(iface, &net.UDPAddr{IP: groupIP}) }()

	l.logger.Info().
		Str("group", l.group).
		Int("port", l.port).
		Msg("listening for multicast commands")

	// Unblock ReadFrom on shutdown.
	closeOnce := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-closeOnce:
		}
	}()
	defer close(closeOnce)

	buf := make([]byte, maxDatagram)
	for {
		n, _, src, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("multicast listener stopped")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			// Transient receive errors must not kill the listener.
			l.logger.Error().Err(err).Msg("multicast receive error")
			continue
		}

		if !l.limiter.Allow() {
			metrics.IncCommandDiscard("rate_limited")
			l.logger.Warn().
				Str("src", src.String()).
				Msg("dropping command datagram (rate limit)")
			continue
		}

		l.handle(ctx, buf[:n], src)
	}
}

func (l *Listener) handle(ctx context.Context, payload []byte, src net.Addr) {
	cmd, ok := ParseCommand(string(payload))
	if !ok {
		metrics.IncCommandDiscard("malformed")
		l.logger.Warn().
			Str("src", src.String()).
			Str("payload", truncate(string(payload), 32)).
			Msg("discarding unrecognized command")
		return
	}

	l.logger.Debug().
		Str("command", cmd.String()).
		Str("src", src.String()).
		Msg("command received")

	// Dispatch errors are already logged and counted by the state machine;
	// the trigger model has no channel to report them back anyway.
	_ = l.dispatcher.Dispatch(ctx, cmd)
}

func (l *Listener) resolveInterface() (*net.Interface, error) {
	if l.ifaceName == "" {
		return nil, nil // kernel picks the default multicast interface
	}
	iface, err := net.InterfaceByName(l.ifaceName)
	if err != nil {
		return nil, fmt.Errorf("multicast interface %q: %w", l.ifaceName, err)
	}
	return iface, nil
}

// ParseCommand matches a datagram payload against the command set,
// case-insensitively and ignoring surrounding whitespace.
func ParseCommand(payload string) (player.Command, bool) {
	switch strings.ToUpper(strings.TrimSpace(payload)) {
	case "PLAY":
		return player.CmdPlay, true
	case "STOP":
		return player.CmdStop, true
	case "LOAD":
		return player.CmdLoad, true
	case "GO":
		return player.CmdGo, true
	}
	return 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
