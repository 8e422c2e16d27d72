// Package zkrep implements a non-interactive proof of knowledge of a representation:
// given bases B₁, …, Bₙ and a point P, the prover knows w₁, …, wₙ with P = w₁•B₁ + … + wₙ•Bₙ.
//
// With a single base this is a Schnorr proof of a discrete logarithm; with two bases
// it proves knowledge of the opening of a Pedersen commitment.
package zkrep

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/bets-framework/ppets/internal/hash"
	"github.com/fxamacker/cbor/v2"
	"go.dedis.ch/kyber/v3"
)

var ErrShape = errors.New("zkrep: bases and witnesses do not match")

type Proof struct {
	// A = a₁•B₁ + … + aₙ•Bₙ
	A kyber.Point
	// Z[i] = aᵢ + e•wᵢ
	Z []kyber.Scalar
}

// EmptyProof returns a proof for n bases, ready to be unmarshalled.
func EmptyProof(group kyber.Group, n int) *Proof {
	z := make([]kyber.Scalar, n)
	for i := range z {
		z[i] = group.Scalar()
	}
	return &Proof{A: group.Point(), Z: z}
}

func challenge(hash *hash.Hash, group kyber.Group, A, public kyber.Point, bases []kyber.Point) (kyber.Scalar, error) {
	if err := hash.WriteAny(A, public); err != nil {
		return nil, err
	}
	for _, b := range bases {
		if err := hash.WriteAny(b); err != nil {
			return nil, err
		}
	}
	return group.Scalar().SetBytes(hash.Sum()), nil
}

// NewProof proves knowledge of witnesses such that public = Σ witnesses[i]•bases[i].
//
// hash should already contain the context the proof is bound to.
func NewProof(hash *hash.Hash, group kyber.Group, rand cipher.Stream, public kyber.Point, bases []kyber.Point, witnesses []kyber.Scalar) (*Proof, error) {
	if len(bases) == 0 || len(bases) != len(witnesses) {
		return nil, ErrShape
	}
	nonces := make([]kyber.Scalar, len(bases))
	A := group.Point().Null()
	for i, b := range bases {
		nonces[i] = group.Scalar().Pick(rand)
		A.Add(A, group.Point().Mul(nonces[i], b))
	}
	e, err := challenge(hash, group, A, public, bases)
	if err != nil {
		return nil, fmt.Errorf("zkrep: %w", err)
	}
	z := make([]kyber.Scalar, len(bases))
	for i := range z {
		z[i] = group.Scalar().Mul(e, witnesses[i])
		z[i].Add(z[i], nonces[i])
	}
	return &Proof{A: A, Z: z}, nil
}

// Verify checks Σ Z[i]•bases[i] = A + e•public.
func (p *Proof) Verify(hash *hash.Hash, group kyber.Group, public kyber.Point, bases []kyber.Point) bool {
	if p == nil || p.A == nil || public == nil || len(p.Z) != len(bases) || len(bases) == 0 {
		return false
	}
	if p.A.Equal(group.Point().Null()) {
		return false
	}
	e, err := challenge(hash, group, p.A, public, bases)
	if err != nil {
		return false
	}
	lhs := group.Point().Null()
	for i, b := range bases {
		if p.Z[i] == nil {
			return false
		}
		lhs.Add(lhs, group.Point().Mul(p.Z[i], b))
	}
	rhs := group.Point().Mul(e, public)
	rhs.Add(rhs, p.A)
	return lhs.Equal(rhs)
}

type wireProof struct {
	A []byte
	Z [][]byte
}

// MarshalCBOR implements cbor.Marshaler.
func (p *Proof) MarshalCBOR() ([]byte, error) {
	a, err := p.A.MarshalBinary()
	if err != nil {
		return nil, err
	}
	w := wireProof{A: a, Z: make([][]byte, len(p.Z))}
	for i, z := range p.Z {
		if w.Z[i], err = z.MarshalBinary(); err != nil {
			return nil, err
		}
	}
	return cbor.Marshal(w)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
//
// The proof must have been created with EmptyProof, with the expected number of bases.
func (p *Proof) UnmarshalCBOR(data []byte) error {
	var w wireProof
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	if p.A == nil || len(w.Z) != len(p.Z) {
		return ErrShape
	}
	if err := p.A.UnmarshalBinary(w.A); err != nil {
		return fmt.Errorf("zkrep: A: %w", err)
	}
	for i := range p.Z {
		if err := p.Z[i].UnmarshalBinary(w.Z[i]); err != nil {
			return fmt.Errorf("zkrep: Z[%d]: %w", i, err)
		}
	}
	return nil
}
