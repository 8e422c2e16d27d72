package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// StatusWord ends every Response payload.
type StatusWord uint16

const (
	StatusOK      StatusWord = 0x9000
	StatusFailure StatusWord = 0x6F00
)

func (sw StatusWord) String() string {
	return fmt.Sprintf("%04X", uint16(sw))
}

// ErrNoStatus is returned when a response is too short to hold a status word.
var ErrNoStatus = errors.New("transport: response without status word")

// AppendStatus returns payload followed by sw.
func AppendStatus(payload []byte, sw StatusWord) []byte {
	out := make([]byte, len(payload), len(payload)+2)
	copy(out, payload)
	return binary.BigEndian.AppendUint16(out, uint16(sw))
}

// OK is the response to an exchange which carries no data.
func OK() []byte {
	return AppendStatus(nil, StatusOK)
}

// SplitStatus separates a response into its payload and status word.
func SplitStatus(data []byte) ([]byte, StatusWord, error) {
	if len(data) < 2 {
		return nil, 0, ErrNoStatus
	}
	n := len(data) - 2
	return data[:n], StatusWord(binary.BigEndian.Uint16(data[n:])), nil
}
