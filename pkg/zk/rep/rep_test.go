package zkrep

import (
	"testing"

	"github.com/bets-framework/ppets/internal/hash"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing/bn256"
)

func setup(n int) (kyber.Group, []kyber.Point, []kyber.Scalar, kyber.Point) {
	suite := bn256.NewSuite()
	group := suite.G1()
	bases := make([]kyber.Point, n)
	witnesses := make([]kyber.Scalar, n)
	public := group.Point().Null()
	for i := range bases {
		bases[i] = group.Point().Pick(suite.RandomStream())
		witnesses[i] = group.Scalar().Pick(suite.RandomStream())
		public.Add(public, group.Point().Mul(witnesses[i], bases[i]))
	}
	return group, bases, witnesses, public
}

func TestRepPass(t *testing.T) {
	for _, n := range []int{1, 2, 3} {
		group, bases, witnesses, public := setup(n)
		proof, err := NewProof(hash.New("test"), group, bn256.NewSuite().RandomStream(), public, bases, witnesses)
		require.NoError(t, err)
		assert.True(t, proof.Verify(hash.New("test"), group, public, bases), "failed passing test")
	}
}

func TestRepFail(t *testing.T) {
	group, bases, witnesses, public := setup(2)
	random := bn256.NewSuite().RandomStream()

	proof, err := NewProof(hash.New("test"), group, random, public, bases, witnesses)
	require.NoError(t, err)
	assert.False(t, proof.Verify(hash.New("other"), group, public, bases), "proof bound to another context")
	assert.False(t, proof.Verify(hash.New("test"), group, group.Point().Pick(random), bases), "wrong public point")
	assert.False(t, proof.Verify(hash.New("test"), group, public, bases[:1]), "wrong number of bases")

	proof.Z[0] = group.Scalar().Pick(random)
	assert.False(t, proof.Verify(hash.New("test"), group, public, bases), "tampered response")

	_, err = NewProof(hash.New("test"), group, random, public, bases, witnesses[:1])
	assert.ErrorIs(t, err, ErrShape)
}

func TestRepMarshal(t *testing.T) {
	group, bases, witnesses, public := setup(2)
	proof, err := NewProof(hash.New("test"), group, bn256.NewSuite().RandomStream(), public, bases, witnesses)
	require.NoError(t, err)

	data, err := cbor.Marshal(proof)
	require.NoError(t, err)

	decoded := EmptyProof(group, 2)
	require.NoError(t, cbor.Unmarshal(data, decoded))
	assert.True(t, decoded.Verify(hash.New("test"), group, public, bases))

	assert.Error(t, cbor.Unmarshal(data, EmptyProof(group, 1)))
}
