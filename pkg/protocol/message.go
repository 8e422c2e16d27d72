package protocol

import "fmt"

// MessageType distinguishes protocol data from channel control.
type MessageType uint8

const (
	Data MessageType = iota
	Control
)

func (t MessageType) String() string {
	if t == Control {
		return "CONTROL"
	}
	return "DATA"
}

// Message is what the transport delivers to a machine for one exchange.
//
// A Data message with nil Data asks the receiver for data; a non-nil Data
// is the data that was requested, or a response.
type Message struct {
	Type MessageType
	// Command is the transport command that carried the message.
	Command Command
	Data    []byte
}

// NewMessage wraps what the transport received for cmd.
func NewMessage(cmd Command, data []byte) Message {
	if cmd.Control() {
		return Message{Type: Control, Command: cmd, Data: data}
	}
	return Message{Type: Data, Command: cmd, Data: data}
}

// StartMessage is fed to an initiating machine to produce its first action.
func StartMessage() Message {
	return Message{Type: Control, Command: Start}
}

// IsRequest returns true for a Data message asking for data.
func (m Message) IsRequest() bool {
	return m.Type == Data && m.Data == nil
}

// Is returns true for a Control message for cmd.
func (m Message) Is(cmd Command) bool {
	return m.Type == Control && m.Command == cmd
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return fmt.Sprintf("message: %s %s, %d bytes", m.Type, m.Command, len(m.Data))
}
