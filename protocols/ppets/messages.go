package ppets

import (
	"errors"
	"fmt"

	"github.com/bets-framework/ppets/internal/hash"
	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/pkg/transport"
	zkrep "github.com/bets-framework/ppets/pkg/zk/rep"
	"github.com/fxamacker/cbor/v2"
	"go.dedis.ch/kyber/v3"
)

// ErrMalformed is returned for a payload which cannot be decoded.
var ErrMalformed = errors.New("ppets: malformed payload")

// AID is the application identifier selected by the reader.
var AID = []byte{0xF0, 'P', 'P', 'E', 'T', 'S', 0x01}

// Ticket is what the seller signs when issuing.
type Ticket struct {
	Serial  uint64  `cbor:"1,keyasint"`
	Variant Variant `cbor:"2,keyasint"`
	// Key is the user's public key Y = x•G.
	Key []byte `cbor:"3,keyasint"`
	// Commitment C = s•G + d•H to the serial s and blinding d.
	Commitment []byte   `cbor:"4,keyasint"`
	Attributes []string `cbor:"5,keyasint,omitempty"`
	Price      uint64   `cbor:"6,keyasint"`
}

// userKeyMsg is the user's answer during registration.
type userKeyMsg struct {
	Key        []byte       `cbor:"1,keyasint"`
	Attributes []string     `cbor:"2,keyasint,omitempty"`
	Proof      *zkrep.Proof `cbor:"3,keyasint"`
}

type credentialMsg struct {
	Signature []byte `cbor:"1,keyasint"`
}

// requestMsg asks the seller for a ticket. The proofs are absent in the lite variant.
type requestMsg struct {
	Key        []byte       `cbor:"1,keyasint"`
	Attributes []string     `cbor:"2,keyasint,omitempty"`
	Credential []byte       `cbor:"3,keyasint"`
	Commitment []byte       `cbor:"4,keyasint"`
	Opening    *zkrep.Proof `cbor:"5,keyasint,omitempty"`
	KeyProof   *zkrep.Proof `cbor:"6,keyasint,omitempty"`
}

type ticketMsg struct {
	Ticket    Ticket `cbor:"1,keyasint"`
	Signature []byte `cbor:"2,keyasint"`
}

// proofMsg shows a ticket to the verifier.
//
// The serial is always revealed. In the lite variant the blinding is revealed too,
// otherwise the user proves knowledge of it and of the key the ticket is bound to.
type proofMsg struct {
	Ticket        Ticket       `cbor:"1,keyasint"`
	Signature     []byte       `cbor:"2,keyasint"`
	Serial        []byte       `cbor:"3,keyasint"`
	Blinding      []byte       `cbor:"4,keyasint,omitempty"`
	BlindingProof *zkrep.Proof `cbor:"5,keyasint,omitempty"`
	KeyProof      *zkrep.Proof `cbor:"6,keyasint,omitempty"`
}

func (c *Context) emptyProof(n int) *zkrep.Proof {
	return zkrep.EmptyProof(c.group.G1(), n)
}

func (c *Context) decodeUserKey(data []byte) (*userKeyMsg, error) {
	m := &userKeyMsg{Proof: c.emptyProof(1)}
	if err := cbor.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: user key: %v", ErrMalformed, err)
	}
	return m, nil
}

func (c *Context) decodeRequest(data []byte) (*requestMsg, error) {
	m := &requestMsg{Opening: c.emptyProof(2), KeyProof: c.emptyProof(1)}
	if err := cbor.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: ticket request: %v", ErrMalformed, err)
	}
	return m, nil
}

func (c *Context) decodeProof(data []byte) (*proofMsg, error) {
	m := &proofMsg{BlindingProof: c.emptyProof(1), KeyProof: c.emptyProof(1)}
	if err := cbor.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: ticket proof: %v", ErrMalformed, err)
	}
	return m, nil
}

func decode(data []byte, v interface{}, what string) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, what, err)
	}
	return nil
}

func marshal(v interface{}) ([]byte, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ppets: encode: %w", err)
	}
	return data, nil
}

func marshalPoint(p kyber.Point) []byte {
	data, err := p.MarshalBinary()
	if err != nil {
		// points of the pairing suite always marshal
		panic(fmt.Sprintf("ppets: marshal point: %v", err))
	}
	return data
}

func marshalScalar(s kyber.Scalar) []byte {
	data, err := s.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("ppets: marshal scalar: %v", err))
	}
	return data
}

func unmarshalPoint(g kyber.Group, data []byte, what string) (kyber.Point, error) {
	p := g.Point()
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, what, err)
	}
	return p, nil
}

func (c *Context) unmarshalScalar(data []byte, what string) (kyber.Scalar, error) {
	s := c.group.G1().Scalar()
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, what, err)
	}
	return s, nil
}

// transcript starts a hash bound to the session's group and generators, and to data.
func (c *Context) transcript(label string, data ...interface{}) *hash.Hash {
	h := hash.New(
		hash.BytesWithDomain{TheDomain: "PPETS", Bytes: []byte(label)},
		c.group.Order().Nat(),
		c.keys.H,
	)
	if err := h.WriteAny(data...); err != nil {
		panic(fmt.Sprintf("ppets: transcript: %v", err))
	}
	return h
}

// signable is the message signed for v, bound to a domain.
func signable(domain string, v interface{}) ([]byte, error) {
	data, err := marshal(v)
	if err != nil {
		return nil, err
	}
	return hash.New(hash.BytesWithDomain{TheDomain: domain, Bytes: data}).Sum(), nil
}

type credentialBody struct {
	Key        []byte   `cbor:"1,keyasint"`
	Attributes []string `cbor:"2,keyasint"`
}

func credentialMessage(key []byte, attributes []string) ([]byte, error) {
	return signable("PPETS credential", credentialBody{Key: key, Attributes: attributes})
}

func ticketMessage(t Ticket) ([]byte, error) {
	return signable("PPETS ticket", t)
}

// Tag identifies a ticket in the ledger, from its revealed serial.
func Tag(serial []byte) []byte {
	return hash.New(hash.BytesWithDomain{TheDomain: "PPETS tag", Bytes: serial}).Sum()[:32]
}

// ok returns the payload of an OK response.
func ok(payload []byte) []byte {
	return transport.AppendStatus(payload, transport.StatusOK)
}

func failure() []byte {
	return transport.AppendStatus(nil, transport.StatusFailure)
}

// response extracts the payload of a device response, failing for anything else.
func response(msg protocol.Message) ([]byte, error) {
	if msg.Type != protocol.Data || msg.Command != protocol.Response || msg.Data == nil {
		return nil, protocol.ErrUnhandledMessage
	}
	payload, sw, err := transport.SplitStatus(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if sw != transport.StatusOK {
		return nil, fmt.Errorf("%w: status %s", protocol.ErrRejected, sw)
	}
	return payload, nil
}

// isRequest returns true for a reader command asking for data.
func isRequest(msg protocol.Message, cmd protocol.Command) bool {
	return msg.IsRequest() && msg.Command == cmd
}

// isPut returns true for a reader command carrying data.
func isPut(msg protocol.Message) bool {
	return msg.Type == protocol.Data && msg.Command == protocol.Put && msg.Data != nil
}
