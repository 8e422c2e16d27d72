package bilinear

import (
	"fmt"
	"io"
	"math/big"

	"github.com/bets-framework/ppets/internal/params"
	"github.com/bets-framework/ppets/pkg/math/sample"
	"github.com/bets-framework/ppets/pkg/pool"
	"github.com/cronokirby/saferith"
)

// Provider creates groups and samples scalars for the protocols.
//
// Implementations must be safe for concurrent use, and keep no per-session state.
type Provider interface {
	// CreateGroup instantiates a fresh group described by p.
	CreateGroup(p Params) (*Group, error)
	// RestoreGroup rebuilds the group created by a peer, from its parameters and order.
	RestoreGroup(p Params, order []byte) (*Group, error)
	// RandomScalar returns a uniform element of [0, modulus).
	RandomScalar(modulus *saferith.Modulus) *saferith.Nat
}

// StandardProvider is the Provider used by the reader and the device.
type StandardProvider struct {
	rand io.Reader
	pool *pool.Pool
}

// NewProvider returns a provider drawing its randomness from rand.
// A pool can be passed to parallelize prime generation for large or composite orders.
func NewProvider(rand io.Reader, pl *pool.Pool) *StandardProvider {
	return &StandardProvider{rand: pool.NewLockedReader(rand), pool: pl}
}

// CreateGroup implements Provider.
func (s *StandardProvider) CreateGroup(p Params) (*Group, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Family != TypeA1 {
		r := sample.Prime(s.rand, p.RBits(), s.pool)
		return newGroup(p, saferith.ModulusFromNat(r)), nil
	}

	primes := sample.Primes(s.rand, p.PrimeCount(), p.PrimeBits(), s.pool)
	n := big.NewInt(1)
	for _, prime := range primes {
		n.Mul(n, prime.Big())
	}
	return newGroup(p, saferith.ModulusFromNat(new(saferith.Nat).SetBig(n, n.BitLen()))), nil
}

// RestoreGroup implements Provider.
func (s *StandardProvider) RestoreGroup(p Params, order []byte) (*Group, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(order)
	bits := n.BitLen()
	if p.Family != TypeA1 {
		if bits != p.RBits() {
			return nil, fmt.Errorf("bilinear: group order has %d bits, expected %d", bits, p.RBits())
		}
		if !n.ProbablyPrime(params.PrimalityIterations) {
			return nil, fmt.Errorf("bilinear: type %s group order is not prime", p.Family)
		}
	} else {
		lo, hi := p.PrimeCount()*(p.PrimeBits()-1)+1, p.OrderBits()
		if bits < lo || bits > hi {
			return nil, fmt.Errorf("bilinear: type A1 group order has %d bits, expected [%d, %d]", bits, lo, hi)
		}
	}
	return newGroup(p, saferith.ModulusFromNat(new(saferith.Nat).SetBig(n, bits))), nil
}

// RandomScalar implements Provider.
func (s *StandardProvider) RandomScalar(modulus *saferith.Modulus) *saferith.Nat {
	return sample.ModN(s.rand, modulus)
}
