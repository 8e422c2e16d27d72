package bilinear

import (
	"bytes"
	"crypto/cipher"

	"github.com/cronokirby/saferith"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing"
	"go.dedis.ch/kyber/v3/pairing/bn256"
)

// Group is an instantiated bilinear group.
//
// The order p is the one described by Params, and bounds every protocol scalar.
// Element operations are delegated to a pairing suite; scalars in [0, p) are
// mapped into the suite's scalar field with Scalar.
type Group struct {
	params Params
	order  *saferith.Modulus
	suite  *bn256.Suite
}

func newGroup(p Params, order *saferith.Modulus) *Group {
	return &Group{
		params: p,
		order:  order,
		suite:  bn256.NewSuite(),
	}
}

// Params returns the parameters this group was created with.
func (g *Group) Params() Params { return g.params }

// Order returns the group order p.
func (g *Group) Order() *saferith.Modulus { return g.order }

// OrderBytes returns the big-endian encoding of p, as sent in a setup snapshot.
func (g *Group) OrderBytes() []byte { return g.order.Bytes() }

// Suite returns the pairing suite used for element operations.
func (g *Group) Suite() pairing.Suite { return g.suite }

// RandomStream returns the stream used to pick nonces and generators.
func (g *Group) RandomStream() cipher.Stream { return g.suite.RandomStream() }

// G1 is the group in which commitments, user keys and BLS signatures live.
func (g *Group) G1() kyber.Group { return g.suite.G1() }

// G2 is the group in which the reader side public keys live.
func (g *Group) G2() kyber.Group { return g.suite.G2() }

// Scalar maps x ∈ [0, p) to a scalar of the pairing suite.
func (g *Group) Scalar(x *saferith.Nat) kyber.Scalar {
	return g.suite.G1().Scalar().SetBytes(x.Bytes())
}

// Equal returns true if both groups have the same parameters and order.
func (g *Group) Equal(other *Group) bool {
	if g == nil || other == nil {
		return g == other
	}
	return g.params == other.params && bytes.Equal(g.OrderBytes(), other.OrderBytes())
}
