package sample

import (
	"io"
	"math/big"

	"github.com/bets-framework/ppets/internal/params"
	"github.com/bets-framework/ppets/pkg/pool"
	"github.com/cronokirby/saferith"
)

// smallPrimes are used to discard most candidates before running Miller-Rabin.
var smallPrimes = []uint64{
	3, 5, 7, 11, 13, 17, 19, 23,
	29, 31, 37, 41, 43, 47, 53, 59,
	61, 67, 71, 73, 79, 83, 89, 97,
	101, 103, 107, 109, 113, 127, 131, 137,
	139, 149, 151, 157, 163, 167, 173, 179,
	181, 191, 193, 197, 199, 211, 223, 227,
	229, 233, 239, 241, 251,
}

// tryPrime draws a single odd candidate of exactly bits bits and returns it if it is prime.
func tryPrime(rand io.Reader, bits int) (*big.Int, bool) {
	buf := make([]byte, (bits+7)/8)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, false
	}
	candidate := new(big.Int).SetBytes(buf)
	// keep exactly bits bits, with the top one set
	candidate.SetBit(candidate, bits-1, 1)
	for i := len(buf) * 8; i >= bits; i-- {
		candidate.SetBit(candidate, i, 0)
	}
	candidate.SetBit(candidate, 0, 1)

	if bits > 8 {
		r := new(big.Int)
		for _, p := range smallPrimes {
			if r.Mod(candidate, r.SetUint64(p)).Sign() == 0 {
				return nil, false
			}
		}
	}
	if !candidate.ProbablyPrime(params.PrimalityIterations) {
		return nil, false
	}
	return candidate, true
}

// Prime returns a random prime of exactly bits bits.
func Prime(rand io.Reader, bits int, pl *pool.Pool) *saferith.Nat {
	return Primes(rand, 1, bits, pl)[0]
}

// Primes returns count distinct random primes, each of exactly bits bits.
// The search is spread over pl.
func Primes(rand io.Reader, count, bits int, pl *pool.Pool) []*saferith.Nat {
	reader := pool.NewLockedReader(rand)
	out := make([]*saferith.Nat, 0, count)
	seen := make(map[string]bool, count)
	for len(out) < count {
		found := pool.Search(pl, count-len(out), func() (*big.Int, bool) {
			return tryPrime(reader, bits)
		})
		for _, p := range found {
			key := p.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, new(saferith.Nat).SetBig(p, bits))
		}
	}
	return out
}
