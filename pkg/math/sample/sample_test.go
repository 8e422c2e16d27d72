package sample

import (
	"crypto/rand"
	"testing"

	"github.com/bets-framework/ppets/pkg/pool"
	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModN(t *testing.T) {
	n := saferith.ModulusFromUint64(3 * 11 * 65519)
	for i := 0; i < 1000; i++ {
		x := ModN(rand.Reader, n)
		_, _, lt := x.CmpMod(n)
		require.Equal(t, saferith.Choice(1), lt, "ModN generated a number >= %v: %v", n, x)
	}
}

func TestModNDistinct(t *testing.T) {
	p := Prime(rand.Reader, 256, nil)
	n := saferith.ModulusFromNat(p)
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		key := string(ModN(rand.Reader, n).Bytes())
		require.False(t, seen[key], "duplicate scalar after %d samples", i)
		seen[key] = true
	}
}

const primeProbabilityIterations = 20

func TestPrime(t *testing.T) {
	for _, bits := range []int{16, 61, 160, 256} {
		p := Prime(rand.Reader, bits, nil).Big()
		assert.True(t, p.ProbablyPrime(primeProbabilityIterations), "Prime generated a non prime number: %v", p)
		assert.Equal(t, bits, p.BitLen())
	}
}

func TestPrimes(t *testing.T) {
	pl := pool.NewPool(0)
	defer pl.TearDown()

	primes := Primes(rand.Reader, 3, 160, pl)
	require.Len(t, primes, 3)
	seen := map[string]bool{}
	for _, p := range primes {
		b := p.Big()
		assert.True(t, b.ProbablyPrime(primeProbabilityIterations))
		assert.Equal(t, 160, b.BitLen())
		assert.False(t, seen[b.String()])
		seen[b.String()] = true
	}
}

// This exists to save the results of functions we want to benchmark, to avoid
// having them optimized away.
var resultNat *saferith.Nat

func BenchmarkPrime256(b *testing.B) {
	for i := 0; i < b.N; i++ {
		resultNat = Prime(rand.Reader, 256, nil)
	}
}

func BenchmarkModN(b *testing.B) {
	b.StopTimer()
	n := saferith.ModulusFromNat(Prime(rand.Reader, 256, nil))
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		resultNat = ModN(rand.Reader, n)
	}
}
