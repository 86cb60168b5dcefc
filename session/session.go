// Package session implements the page-side editor session: capturing the
// focused element, opening an editor surface, and writing results back.
package session

import (
	"errors"
	"fmt"
)

// State is the controller's position in the session lifecycle.
type State int

const (
	Idle State = iota
	Capturing
	EditorOpen
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case EditorOpen:
		return "editor-open"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions lists the legal successors of each state. A shortcut fired
// while the editor is open recaptures, replacing the session.
var transitions = map[State][]State{
	Idle:       {Capturing},
	Capturing:  {EditorOpen, Idle},
	EditorOpen: {Capturing, Idle},
}

// ErrIllegalTransition is returned when an operation is not valid in the
// current state. The state is left unchanged.
var ErrIllegalTransition = errors.New("illegal session transition")

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}
