package bot

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid loop state transition")
	ErrNotRestartable    = errors.New("loop already started; create a new one")
)

// State is the lifecycle stage of a Loop.
type State uint8

const (
	StateCreated State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText renders the state name in JSON status payloads.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// canTransition lists the allowed edges. Stopped has none.
func canTransition(from, to State) bool {
	switch from {
	case StateCreated:
		return to == StateRunning || to == StateStopped
	case StateRunning:
		return to == StateDraining
	case StateDraining:
		return to == StateStopped
	}
	return false
}
