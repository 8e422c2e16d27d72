package protocol

import (
	"fmt"
	"time"
)

// Status tells the machine whether the session continues.
type Status uint8

const (
	Continue Status = iota
	EndSuccess
	EndFailure
)

func (s Status) String() string {
	switch s {
	case Continue:
		return "CONTINUE"
	case EndSuccess:
		return "END_SUCCESS"
	case EndFailure:
		return "END_FAILURE"
	default:
		return fmt.Sprintf("STATUS(%d)", uint8(s))
	}
}

// Terminal returns true if the session ends with s.
func (s Status) Terminal() bool {
	return s != Continue
}

// Action is produced by a State for one inbound Message.
type Action struct {
	Status Status
	// Next is the absolute index of the state handling the following message.
	// It must be a valid index of the sequence when Status is Continue.
	Next    int
	Command Command
	Payload []byte
	// Timeout bounds the wait for the peer's reply. Zero selects the machine's default.
	Timeout time.Duration
}

// Proceed continues at state next after emitting cmd with payload.
func Proceed(next int, cmd Command, payload []byte) Action {
	return Action{Status: Continue, Next: next, Command: cmd, Payload: payload}
}

// Succeed ends the session successfully, after emitting cmd if it is not None.
func Succeed(cmd Command, payload []byte) Action {
	return Action{Status: EndSuccess, Command: cmd, Payload: payload}
}

// Fail ends the session with a failure, after emitting cmd if it is not None.
func Fail(cmd Command, payload []byte) Action {
	return Action{Status: EndFailure, Command: cmd, Payload: payload}
}

// WithTimeout returns a copy of a with its timeout set to d.
func (a Action) WithTimeout(d time.Duration) Action {
	a.Timeout = d
	return a
}
