package ppets

import (
	"errors"
	"fmt"

	"github.com/bets-framework/ppets/pkg/bilinear"
	"github.com/bets-framework/ppets/pkg/pool"
	"github.com/fxamacker/cbor/v2"
	"go.dedis.ch/kyber/v3"
)

// SnapshotVersion is the version of the Snapshot encoding.
const SnapshotVersion = 1

// ErrSnapshotVersion is returned for a snapshot this version cannot read.
var ErrSnapshotVersion = errors.New("ppets: unsupported snapshot version")

// Snapshot is the public part of a reader's context, sent to the device during setup.
//
// It has no field for secrets: what is not here never leaves the reader.
type Snapshot struct {
	Version          uint16          `cbor:"1,keyasint"`
	Variant          Variant         `cbor:"2,keyasint"`
	Family           bilinear.Family `cbor:"3,keyasint"`
	Strength1        int             `cbor:"4,keyasint"`
	Strength2        int             `cbor:"5,keyasint"`
	Order            []byte          `cbor:"6,keyasint"`
	SkipVerification bool            `cbor:"7,keyasint"`
	NumValidations   int             `cbor:"8,keyasint"`
	H                []byte          `cbor:"9,keyasint"`
	AuthorityKey     []byte          `cbor:"10,keyasint"`
	SellerKey        []byte          `cbor:"11,keyasint"`
	VerifierKey      []byte          `cbor:"12,keyasint"`
}

// Parameters returns the session parameters carried by s.
func (s *Snapshot) Parameters() Parameters {
	return Parameters{
		SkipVerification: s.SkipVerification,
		NumValidations:   s.NumValidations,
		Group: bilinear.Params{
			Family:    s.Family,
			Strength1: s.Strength1,
			Strength2: s.Strength2,
		},
	}
}

// setup creates the group if needed, and fresh keys for every reader role.
func (c *Context) setup() error {
	if err := c.params.Validate(); err != nil {
		return err
	}
	if c.group == nil {
		g, err := c.provider.CreateGroup(c.params.Group)
		if err != nil {
			return fmt.Errorf("ppets: create group: %w", err)
		}
		c.group = g
		c.logParameters()
	}
	c.resetData()
	stream := c.group.RandomStream()
	c.keys = PublicKeys{H: c.group.G1().Point().Pick(stream)}

	pairs := pool.Parallelize(c.pool, len(readerActors), func(int) KeyPair {
		return c.newKeyPair(c.group.G2())
	})
	for i, a := range readerActors {
		if err := c.ActAs(a); err != nil {
			return err
		}
		kp := pairs[i]
		switch a {
		case CentralAuthority:
			d, err := c.AuthorityData()
			if err != nil {
				return err
			}
			d.KeyPair = kp
			c.keys.Authority = kp.Public
		case Seller:
			d, err := c.SellerData()
			if err != nil {
				return err
			}
			d.KeyPair = kp
			c.keys.Seller = kp.Public
		case Verifier:
			d, err := c.VerifierData()
			if err != nil {
				return err
			}
			d.KeyPair = kp
			c.keys.Verifier = kp.Public
		}
	}
	return c.ActAs(CentralAuthority)
}

// newKeyPair draws x ∈ [0, p) and computes x•B for the base B of g.
func (c *Context) newKeyPair(g kyber.Group) KeyPair {
	x := c.provider.RandomScalar(c.group.Order())
	return KeyPair{
		Secret: x,
		Public: g.Point().Mul(c.group.Scalar(x), nil),
	}
}

// Snapshot encodes the public part of the context. It fails before setup.
func (c *Context) Snapshot() ([]byte, error) {
	if c.group == nil || c.keys.H == nil {
		return nil, errors.New("ppets: snapshot before setup")
	}
	s := Snapshot{
		Version:          SnapshotVersion,
		Variant:          c.variant,
		Family:           c.params.Group.Family,
		Strength1:        c.params.Group.Strength1,
		Strength2:        c.params.Group.Strength2,
		Order:            c.group.OrderBytes(),
		SkipVerification: c.params.SkipVerification,
		NumValidations:   c.params.NumValidations,
		H:                marshalPoint(c.keys.H),
		AuthorityKey:     marshalPoint(c.keys.Authority),
		SellerKey:        marshalPoint(c.keys.Seller),
		VerifierKey:      marshalPoint(c.keys.Verifier),
	}
	return marshal(s)
}

// DecodeSnapshot decodes a snapshot. Fields unknown to this version are ignored.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	s := &Snapshot{}
	if err := cbor.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", ErrMalformed, err)
	}
	if s.Version == 0 || s.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, s.Version)
	}
	return s, nil
}

// FromSnapshot returns a device context set up from an encoded snapshot.
func FromSnapshot(data []byte, provider bilinear.Provider, opts ...ContextOption) (*Context, error) {
	s, err := DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	c := NewDeviceContext(provider, opts...)
	c.variant = s.Variant
	if err = c.Apply(s); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply installs the group, public keys and configuration of a reader's snapshot.
// On error, the context is left unchanged.
func (c *Context) Apply(s *Snapshot) error {
	if c.variant != 0 && s.Variant != c.variant {
		return fmt.Errorf("ppets: reader runs %s, device runs %s", s.Variant, c.variant)
	}
	p := s.Parameters()
	if err := p.Validate(); err != nil {
		return err
	}
	g, err := c.provider.RestoreGroup(p.Group, s.Order)
	if err != nil {
		return err
	}
	var keys PublicKeys
	if keys.H, err = unmarshalPoint(g.G1(), s.H, "H"); err != nil {
		return err
	}
	if keys.Authority, err = unmarshalPoint(g.G2(), s.AuthorityKey, "authority key"); err != nil {
		return err
	}
	if keys.Seller, err = unmarshalPoint(g.G2(), s.SellerKey, "seller key"); err != nil {
		return err
	}
	if keys.Verifier, err = unmarshalPoint(g.G2(), s.VerifierKey, "verifier key"); err != nil {
		return err
	}
	c.params = p
	c.group = g
	c.keys = keys
	c.variant = s.Variant
	c.logParameters()
	return nil
}

// PruneLocalOnly drops the records of roles the local peer does not play,
// and resets those it plays to fresh records.
func (c *Context) PruneLocalOnly() {
	c.resetData()
	if !c.local[c.current] {
		for a := range c.local {
			c.current = a
			break
		}
	}
}
