package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bets-framework/ppets/internal/test"
	"github.com/bets-framework/ppets/pkg/bilinear"
	"github.com/bets-framework/ppets/pkg/ledger"
	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/protocols/ppets"
	"github.com/rs/zerolog"
)

// Session runs one reader/device exchange in memory and returns the reader's report.
func Session(ctx context.Context, v ppets.Variant, reader, device *ppets.Context, log zerolog.Logger) (*ppets.Report, error) {
	n := test.NewNetwork(nil)
	rm, err := ppets.NewReader(v, reader, protocol.WithLogger(log))
	if err != nil {
		return nil, err
	}
	dm, err := ppets.NewDevice(v, device, protocol.WithLogger(log))
	if err != nil {
		return nil, err
	}
	res := test.Session(ctx, n, rm, dm)
	if err = errors.Join(res.Reader.Err, res.Device.Err); err != nil {
		return nil, err
	}
	return ppets.DecodeReport(res.Reader.Payload)
}

// Variants runs a session of every variant with a fresh ledger each.
func Variants(ctx context.Context, provider bilinear.Provider, log zerolog.Logger) error {
	for _, v := range []ppets.Variant{ppets.ABC, ppets.FGP, ppets.FGPLite} {
		reader := ppets.NewReaderContext(provider,
			ppets.WithLogger(log),
			ppets.WithPolicy(ppets.Policy{Price: 100, Discounts: map[string]uint64{"student": 40}}),
		)
		device := ppets.NewDeviceContext(provider, ppets.WithLogger(log), ppets.WithAttributes("student"))
		r, err := Session(ctx, v, reader, device, log)
		if err != nil {
			return fmt.Errorf("%s: %w", v, err)
		}
		logReport(log, r)
	}
	return nil
}

// Shared runs two single-validation sessions against one ledger. Each ticket
// has its own serial, so both are valid and the ledger ends with two tags.
func Shared(ctx context.Context, provider bilinear.Provider, store ledger.Store, log zerolog.Logger) error {
	params := ppets.DefaultParameters()
	params.NumValidations = 1
	for i := 0; i < 2; i++ {
		reader := ppets.NewReaderContext(provider,
			ppets.WithLogger(log),
			ppets.WithParameters(params),
			ppets.WithLedger(store),
		)
		device := ppets.NewDeviceContext(provider, ppets.WithLogger(log))
		r, err := Session(ctx, ppets.FGP, reader, device, log)
		if err != nil {
			return err
		}
		logReport(log, r)
	}
	return nil
}

func logReport(log zerolog.Logger, r *ppets.Report) {
	outcomes := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		outcomes[i] = o.String()
	}
	log.Info().
		Stringer("variant", r.Variant).
		Uint64("price", r.Price).
		Strs("outcomes", outcomes).
		Bool("double spent", r.DoubleSpent()).
		Msg("report")
}
