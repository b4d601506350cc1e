// SPDX-License-Identifier: MIT

package trigger

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/ManuGH/videowall/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		payload string
		want    player.Command
		ok      bool
	}{
		{"PLAY", player.CmdPlay, true},
		{"STOP", player.CmdStop, true},
		{"LOAD", player.CmdLoad, true},
		{"GO", player.CmdGo, true},
		{"play", player.CmdPlay, true},
		{"Stop", player.CmdStop, true},
		{"  go  ", player.CmdGo, true},
		{"PLAY\n", player.CmdPlay, true},
		{"FOO", 0, false},
		{"", 0, false},
		{"PLAY NOW", 0, false},
		{"PLAYX", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, ok := ParseCommand(tt.payload)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

type recordingDispatcher struct {
	mu   sync.Mutex
	cmds []player.Command
}

func (d *recordingDispatcher) Dispatch(_ context.Context, cmd player.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmds = append(d.cmds, cmd)
	return nil
}

func (d *recordingDispatcher) commands() []player.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]player.Command(nil), d.cmds...)
}

func TestHandleDispatchesKnownCommands(t *testing.T) {
	d := &recordingDispatcher{}
	l := NewListener("239.255.42.1", 5000, "", d)
	src := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 10), Port: 40000}

	l.handle(context.Background(), []byte("load"), src)
	l.handle(context.Background(), []byte("GO\n"), src)

	require.Equal(t, []player.Command{player.CmdLoad, player.CmdGo}, d.commands())
}

func TestHandleDiscardsMalformedPayloads(t *testing.T) {
	d := &recordingDispatcher{}
	l := NewListener("239.255.42.1", 5000, "", d)
	src := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 10), Port: 40000}

	l.handle(context.Background(), []byte("FOO"), src)
	l.handle(context.Background(), []byte{0xff, 0xfe, 0x00}, src)
	l.handle(context.Background(), []byte(""), src)

	assert.Empty(t, d.commands())
}

func TestRunRejectsInvalidGroup(t *testing.T) {
	tests := []string{"not-an-ip", "", "ff02::1"} // IPv6 groups are out of scope
	for _, group := range tests {
		l := NewListener(group, 5000, "", &recordingDispatcher{})
		err := l.Run(context.Background())
		require.Error(t, err)
	}
}

func TestRunRejectsUnknownInterface(t *testing.T) {
	l := NewListener("239.255.42.1", 0, "definitely-not-a-real-interface-0", nil)
	_, err := l.resolveInterface()
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 32))
	assert.Equal(t, "abc...", truncate("abcdefgh", 3))
}
