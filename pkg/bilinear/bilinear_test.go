package bilinear

import (
	"crypto/rand"
	"errors"
	"math/big"
	"testing"

	"github.com/bets-framework/ppets/internal/params"
	"github.com/bets-framework/ppets/pkg/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFamily(t *testing.T) {
	for _, s := range []string{"A", "A1", "E"} {
		f, err := ParseFamily(s)
		require.NoError(t, err)
		assert.Equal(t, Family(s), f)
	}
	_, err := ParseFamily("Z")
	var unsupported *UnsupportedParameterError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "Z", unsupported.Value)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"default A", DefaultParams(TypeA), false},
		{"default A1", DefaultParams(TypeA1), false},
		{"default E", DefaultParams(TypeE), false},
		{"unknown family", Params{Family: "Z", Strength1: 256, Strength2: 512}, true},
		{"A q not above r", Params{Family: TypeA, Strength1: 256, Strength2: 256}, true},
		{"A r too small", Params{Family: TypeA, Strength1: 8, Strength2: 512}, true},
		{"A1 no primes", Params{Family: TypeA1, Strength1: 0, Strength2: 160}, true},
		{"A1 too many primes", Params{Family: TypeA1, Strength1: params.MaxA1Primes + 1, Strength2: 160}, true},
		{"A1 primes too small", Params{Family: TypeA1, Strength1: 3, Strength2: 4}, true},
		{"E order too large", Params{Family: TypeE, Strength1: params.BitsMaxOrder + 1, Strength2: params.BitsMaxOrder + 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestA1SlotMeaning(t *testing.T) {
	p := Params{Family: TypeA1, Strength1: 3, Strength2: 160}
	assert.Equal(t, 3, p.PrimeCount())
	assert.Equal(t, 160, p.PrimeBits())
	assert.Equal(t, 480, p.OrderBits())

	a := Params{Family: TypeA, Strength1: 3, Strength2: 160}
	assert.Equal(t, 3, a.OrderBits())
}

func TestCreateAndRestoreGroup(t *testing.T) {
	pl := pool.NewPool(0)
	defer pl.TearDown()
	provider := NewProvider(rand.Reader, pl)

	for _, f := range []Family{TypeA, TypeA1, TypeE} {
		t.Run(string(f), func(t *testing.T) {
			p := DefaultParams(f)
			group, err := provider.CreateGroup(p)
			require.NoError(t, err)
			assert.Equal(t, p, group.Params())
			if f == TypeA1 {
				assert.LessOrEqual(t, group.Order().BitLen(), p.OrderBits())
				assert.False(t, group.Order().Big().ProbablyPrime(params.PrimalityIterations))
			} else {
				assert.Equal(t, p.RBits(), group.Order().BitLen())
				assert.True(t, group.Order().Big().ProbablyPrime(params.PrimalityIterations))
			}

			restored, err := provider.RestoreGroup(p, group.OrderBytes())
			require.NoError(t, err)
			assert.True(t, group.Equal(restored))
		})
	}
}

func TestRestoreGroupRejects(t *testing.T) {
	provider := NewProvider(rand.Reader, nil)
	group, err := provider.CreateGroup(DefaultParams(TypeA))
	require.NoError(t, err)

	_, err = provider.RestoreGroup(DefaultParams(TypeE), group.OrderBytes())
	assert.Error(t, err, "order size does not match r bits")

	composite := new(big.Int).Lsh(group.Order().Big(), 1)
	_, err = provider.RestoreGroup(Params{Family: TypeA, Strength1: composite.BitLen(), Strength2: 1024}, composite.Bytes())
	assert.Error(t, err, "even order is not prime")

	_, err = provider.RestoreGroup(Params{Family: "Z", Strength1: 256, Strength2: 512}, group.OrderBytes())
	assert.Error(t, err)
}

func TestRandomScalar(t *testing.T) {
	provider := NewProvider(rand.Reader, nil)
	group, err := provider.CreateGroup(Params{Family: TypeA, Strength1: 64, Strength2: 128})
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		x := provider.RandomScalar(group.Order())
		_, _, lt := x.CmpMod(group.Order())
		require.EqualValues(t, 1, lt)
		require.NotNil(t, group.Scalar(x))
	}
}
