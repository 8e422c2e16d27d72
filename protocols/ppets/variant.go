package ppets

import (
	"fmt"
	"strings"

	"github.com/bets-framework/ppets/pkg/bilinear"
	"github.com/bets-framework/ppets/pkg/protocol"
)

// Variant selects the composition of states.
type Variant uint8

const (
	// ABC binds the user's attributes into the ticket.
	ABC Variant = iota + 1
	// FGP prices the ticket from the user's attributes.
	FGP
	// FGPLite is FGP without proofs during issuing, and with the ticket opened during validation.
	FGPLite
)

func (v Variant) String() string {
	switch v {
	case ABC:
		return "abc"
	case FGP:
		return "fgp"
	case FGPLite:
		return "fgp-lite"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// ParseVariant maps "abc", "fgp" or "fgp-lite" (any case) to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abc":
		return ABC, nil
	case "fgp":
		return FGP, nil
	case "fgp-lite", "fgplite", "fgp_lite":
		return FGPLite, nil
	default:
		return 0, &bilinear.UnsupportedParameterError{Name: "variant", Value: s}
	}
}

// Valid returns true for a known variant.
func (v Variant) Valid() bool {
	return v == ABC || v == FGP || v == FGPLite
}

// Indices of the reader's states.
const (
	readerOpenIndex = iota
	readerSelectIndex
	readerPutSetupIndex
	readerGetUserKeyIndex
	readerRegisterIndex
	readerGetRequestIndex
	readerIssueIndex
	readerGetProofIndex
	readerValidateIndex
	readerCloseIndex
	readerDoneIndex
)

// Indices of the device's states.
const (
	deviceOpenIndex = iota
	deviceSelectIndex
	deviceSetupIndex
	deviceUserKeyIndex
	deviceCredentialIndex
	deviceRequestIndex
	deviceTicketIndex
	deviceProveIndex
)

// ReaderStates returns the reader's sequence for v.
// The lite variant only replaces the issuing and validating states.
func ReaderStates(v Variant) []protocol.State[*Context] {
	states := []protocol.State[*Context]{
		readerOpenIndex:       readerOpen{},
		readerSelectIndex:     readerSelect{},
		readerPutSetupIndex:   readerPutSetup{},
		readerGetUserKeyIndex: readerGetUserKey{},
		readerRegisterIndex:   readerRegister{},
		readerGetRequestIndex: readerGetRequest{},
		readerIssueIndex:      readerIssue{},
		readerGetProofIndex:   readerGetProof{},
		readerValidateIndex:   readerValidate{},
		readerCloseIndex:      readerClose{},
		readerDoneIndex:       readerDone{},
	}
	switch v {
	case ABC:
		states[readerIssueIndex] = readerIssueABC{}
		states[readerValidateIndex] = readerValidateABC{}
	case FGPLite:
		states[readerIssueIndex] = readerIssueLite{}
		states[readerValidateIndex] = readerValidateLite{}
	}
	return states
}

// DeviceStates returns the device's sequence for v.
func DeviceStates(v Variant) []protocol.State[*Context] {
	states := []protocol.State[*Context]{
		deviceOpenIndex:       deviceOpen{},
		deviceSelectIndex:     deviceSelect{},
		deviceSetupIndex:      deviceSetup{},
		deviceUserKeyIndex:    deviceUserKey{},
		deviceCredentialIndex: deviceCredential{},
		deviceRequestIndex:    deviceRequest{},
		deviceTicketIndex:     deviceTicket{},
		deviceProveIndex:      deviceProve{},
	}
	if v == FGPLite {
		states[deviceRequestIndex] = deviceRequestLite{}
		states[deviceProveIndex] = deviceProveLite{}
	}
	return states
}

// NewReader returns the machine running variant v on the reader, with context c.
//
// The validation report is sent with PUT_INTERNAL, so the connection the machine
// runs on must answer internal commands (see transport.WithInternal).
func NewReader(v Variant, c *Context, opts ...protocol.Option) (*protocol.Machine[*Context], error) {
	if !v.Valid() {
		return nil, &bilinear.UnsupportedParameterError{Name: "variant", Value: v.String()}
	}
	c.variant = v
	return protocol.NewMachine(fmt.Sprintf("ppets/%s/reader", v), ReaderStates(v), c, opts...)
}

// NewDevice returns the machine running variant v on the device, with context c.
func NewDevice(v Variant, c *Context, opts ...protocol.Option) (*protocol.Machine[*Context], error) {
	if !v.Valid() {
		return nil, &bilinear.UnsupportedParameterError{Name: "variant", Value: v.String()}
	}
	c.variant = v
	return protocol.NewMachine(fmt.Sprintf("ppets/%s/device", v), DeviceStates(v), c, opts...)
}
