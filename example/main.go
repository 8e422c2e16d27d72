package main

import (
	"context"
	"crypto/rand"
	"os"

	"github.com/bets-framework/ppets/internal/logger"
	"github.com/bets-framework/ppets/pkg/bilinear"
	"github.com/bets-framework/ppets/pkg/ledger"
	"github.com/bets-framework/ppets/pkg/pool"
)

func main() {
	log := logger.New(1, "console")
	pl := pool.NewPool(0)
	defer pl.TearDown()
	provider := bilinear.NewProvider(rand.Reader, pl)
	ctx := context.Background()

	if err := Variants(ctx, provider, log); err != nil {
		log.Error().Err(err).Msg("variants")
		os.Exit(1)
	}

	store, err := ledger.OpenInMemorySQL()
	if err != nil {
		log.Error().Err(err).Msg("ledger")
		os.Exit(1)
	}
	defer store.Close()
	if err = Shared(ctx, provider, store, log); err != nil {
		log.Error().Err(err).Msg("shared ledger")
		os.Exit(1)
	}
}
