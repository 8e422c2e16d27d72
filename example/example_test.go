package main

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/bets-framework/ppets/pkg/bilinear"
	"github.com/bets-framework/ppets/pkg/ledger"
	"github.com/bets-framework/ppets/pkg/pool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShared(t *testing.T) {
	pl := pool.NewPool(0)
	defer pl.TearDown()
	provider := bilinear.NewProvider(rand.Reader, pl)
	store := ledger.NewMemory()

	require.NoError(t, Shared(context.Background(), provider, store, zerolog.Nop()))
	// each session issues its own serial
	assert.Equal(t, 2, store.Len())
}

func TestVariants(t *testing.T) {
	pl := pool.NewPool(0)
	defer pl.TearDown()
	require.NoError(t, Variants(context.Background(), bilinear.NewProvider(rand.Reader, pl), zerolog.Nop()))
}
