// SPDX-License-Identifier: MIT

// Package player implements the playback state machine that arbitrates
// between trigger commands and file transfers. It is the single owner of
// mutable playback state; the listeners only call into it.
package player

import "fmt"

// State represents the playback state machine state.
type State int

const (
	StateIdle    State = iota
	StateLoaded        // decoder launched and paused, waiting for GO
	StatePlaying       // decoder rendering
)

var stateNames = [...]string{"idle", "loaded", "playing"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// StateNames lists all state names, for the one-hot state gauge.
func StateNames() []string {
	return stateNames[:]
}

// Command is a parsed trigger command.
type Command int

const (
	CmdPlay Command = iota
	CmdStop
	CmdLoad
	CmdGo
)

var commandNames = [...]string{"play", "stop", "load", "go"}

func (c Command) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}
