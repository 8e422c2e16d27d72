// Package transport carries protocol commands between a reader and a device.
//
// Each exchange is one Frame. The reader sends the commands of the vocabulary,
// the device answers every one of them with a Response frame whose payload ends
// with a status word.
package transport

import (
	"errors"

	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/fxamacker/cbor/v2"
)

// ErrClosed is returned when the local or remote end of a connection was closed.
var ErrClosed = errors.New("transport: connection closed")

// Conn is a half-duplex connection to the peer.
type Conn interface {
	protocol.Conn
	// Close releases the connection. Pending and later calls fail with ErrClosed.
	Close() error
}

// Frame is the unit exchanged over a connection.
type Frame struct {
	Command protocol.Command `cbor:"1,keyasint"`
	Payload []byte           `cbor:"2,keyasint,omitempty"`
}

// Message returns what the receiving machine sees for f.
func (f Frame) Message() protocol.Message {
	return protocol.NewMessage(f.Command, f.Payload)
}

// Marshal encodes f as cbor.
func (f Frame) Marshal() ([]byte, error) {
	return cbor.Marshal(f)
}

// UnmarshalFrame decodes a frame and checks its command.
func UnmarshalFrame(data []byte) (Frame, error) {
	var f Frame
	if err := cbor.Unmarshal(data, &f); err != nil {
		return Frame{}, err
	}
	if !f.Command.Valid() || f.Command == protocol.None || f.Command == protocol.Start {
		return Frame{}, errors.New("transport: invalid command in frame")
	}
	return f, nil
}
