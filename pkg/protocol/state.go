package protocol

// State is one step of a protocol. It consumes the inbound message with the
// session's context, and decides what happens next.
//
// A State that does not expect msg must return ErrUnhandledMessage, wrapped or not.
type State[C any] interface {
	Action(msg Message, ctx C) (Action, error)
}

// StateFunc adapts a function to the State interface.
type StateFunc[C any] func(msg Message, ctx C) (Action, error)

// Action implements State.
func (f StateFunc[C]) Action(msg Message, ctx C) (Action, error) {
	return f(msg, ctx)
}

// Successors may be implemented by a State to declare the indices it can continue at.
// ValidateSequence uses it to check a composition before running it.
type Successors interface {
	Successors() []int
}
