// SPDX-License-Identifier: MIT

//go:build unix

package decoder

import (
	"fmt"
	"os"
	"syscall"
)

// newControlFIFO recreates the named pipe the decoder reads its commands
// from and opens it read-write. The read-write open never blocks waiting for
// a peer, and keeps the pipe alive across decoder restarts of the read end.
func newControlFIFO(path string) (*os.File, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale control fifo: %w", err)
	}
	if err := syscall.Mkfifo(path, 0o600); err != nil {
		return nil, fmt.Errorf("mkfifo %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open control fifo: %w", err)
	}
	return f, nil
}
