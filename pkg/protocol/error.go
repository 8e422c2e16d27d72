package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrUnhandledMessage is returned by a State which does not expect the message it was given.
	ErrUnhandledMessage = errors.New("protocol: unhandled protocol message")
	// ErrStateIndex is returned when an action continues at an index outside the sequence.
	ErrStateIndex = errors.New("protocol: next state index out of range")
	// ErrSessionEnded is returned when a machine is advanced after a terminal status.
	ErrSessionEnded = errors.New("protocol: session already ended")
	// ErrCancelled is returned when the peer closed the channel in a state that did not expect it.
	ErrCancelled = errors.New("protocol: session cancelled by peer")
	// ErrTimeout is returned when the peer did not reply within the action's timeout.
	ErrTimeout = errors.New("protocol: timed out waiting for peer")
	// ErrRejected is returned by a state when the peer answered with a failure status.
	ErrRejected = errors.New("protocol: peer rejected the exchange")
)

// Error is a fatal session error, with information about the state in which it occurred.
type Error struct {
	// Protocol is the name of the machine's protocol
	Protocol string
	// Index of the state being executed
	Index int
	// Err is the underlying error
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: state %d: %s", e.Protocol, e.Index, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
