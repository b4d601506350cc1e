// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup spawns and reaps external processes as process groups so
// that terminating the decoder also terminates any children it forked.
package procgroup

import (
	"os/exec"
	"time"

	"github.com/ManuGH/videowall/internal/metrics"
)

// Set configures the command to start in a new process group.
// Mandatory for Terminate to function as a group reaper.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Terminate gracefully stops a process group: SIGTERM, wait up to grace via
// the provided wait channel, then SIGKILL. It consumes and returns the error
// from waitCh. Safe to call with a nil command.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := signalGroup(cmd, sigTerm); err == nil {
		metrics.IncProcTerminate("SIGTERM", "sent")
	} else {
		metrics.IncProcTerminate("SIGTERM", "error")
	}

	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
	}

	if err := signalGroup(cmd, sigKill); err == nil {
		metrics.IncProcTerminate("SIGKILL", "sent")
	} else {
		metrics.IncProcTerminate("SIGKILL", "error")
	}

	// Always drain waitCh; SIGKILL frees a blocked process.
	return <-waitCh
}
