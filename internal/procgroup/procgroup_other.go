// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build !unix

package procgroup

import (
	"os"
	"os/exec"
	"syscall"
)

const (
	sigTerm = syscall.Signal(0x0f)
	sigKill = syscall.Signal(0x09)
)

func set(cmd *exec.Cmd) {
	// Best effort only; process groups are a unix concept.
}

// signalGroup falls back to signalling only the root process.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if sig == sigKill {
		return cmd.Process.Kill()
	}
	return cmd.Process.Signal(os.Interrupt)
}
