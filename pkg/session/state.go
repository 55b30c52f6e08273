package session

import (
	"fmt"
	"time"
)

// State is the session manager's position in its accept/serve cycle.
type State int

const (
	Listening State = iota
	DataAccepted
	CommandAccepted
	Active
	Closing
)

var states = []State{Listening, DataAccepted, CommandAccepted, Active, Closing}

func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case DataAccepted:
		return "data-accepted"
	case CommandAccepted:
		return "command-accepted"
	case Active:
		return "active"
	case Closing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Event is published on every state transition.
type Event struct {
	Session string    `json:"session,omitempty"`
	State   State     `json:"state"`
	Time    time.Time `json:"time"`
	Detail  string    `json:"detail,omitempty"`
}

// Observer receives transitions. Publish must not block.
type Observer interface {
	Publish(Event)
}

// Snapshot is the manager's current position, for status reporting.
type Snapshot struct {
	State   State  `json:"state"`
	Session string `json:"session,omitempty"`
	Cycles  int    `json:"cycles"`
}
