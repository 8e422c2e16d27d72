package protocol

import "fmt"

// Command is the instruction carried by one exchange over the transport.
//
// Open, Select, Get, GetInternal, Put, PutInternal and Close form the vocabulary of
// the initiating peer (the reader). Response is used by the other peer to answer
// the exchange it received.
type Command uint8

const (
	// None means the action does not emit anything.
	None Command = iota
	// Start is never sent; it labels the synthetic message that starts an initiating machine.
	Start
	Open
	Select
	Get
	GetInternal
	Put
	PutInternal
	Close
	Response
)

var commandNames = map[Command]string{
	None:        "NONE",
	Start:       "START",
	Open:        "OPEN",
	Select:      "SELECT",
	Get:         "GET",
	GetInternal: "GET_INTERNAL",
	Put:         "PUT",
	PutInternal: "PUT_INTERNAL",
	Close:       "CLOSE",
	Response:    "RESPONSE",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("COMMAND(%d)", uint8(c))
}

// Valid returns true if c belongs to the command vocabulary.
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// Internal returns true for commands answered by the local end of the transport.
func (c Command) Internal() bool {
	return c == GetInternal || c == PutInternal
}

// Control returns true for commands that carry no protocol data of their own.
func (c Command) Control() bool {
	switch c {
	case Start, Open, Select, Close:
		return true
	default:
		return false
	}
}
