package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bets-framework/ppets/pkg/ledger"
	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/pkg/transport"
	"github.com/bets-framework/ppets/pkg/transport/ws"
	"github.com/bets-framework/ppets/protocols/ppets"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func readerCmd() *cobra.Command {
	var listen, ledgerPath string
	cmd := &cobra.Command{
		Use:   "reader [skipVerification [numValidations [pairingFamily [strengthParam1 [strengthParam2]]]]]",
		Short: "Issue and validate tickets for devices connecting over websocket",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if listen != "" {
				e.cfg.Reader.Listen = listen
			}
			if ledgerPath != "" {
				e.cfg.Reader.Ledger = ledgerPath
			}
			params := readerParameters(e, args)

			store, err := openLedger(e.cfg.Reader.Ledger)
			if err != nil {
				return err
			}
			defer store.Close()
			consumed, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			e.log.Info().Str("ledger", e.cfg.Reader.Ledger).Int64("consumed", consumed).Msg("ledger opened")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, e, params, store)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config, :7878)")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "SQLite file of consumed tickets (default in memory)")
	return cmd
}

// readerParameters applies the positional arguments, or those of the configuration.
// An invalid list is logged and the defaults are kept.
func readerParameters(e *env, args []string) ppets.Parameters {
	if len(args) == 0 {
		args = e.cfg.Reader.Parameters
	}
	return ppets.ApplyParameters(e.log, args, ppets.DefaultParameters())
}

func openLedger(path string) (ledger.Store, error) {
	if path == "" || path == ledger.InMemoryDSN {
		return ledger.OpenInMemorySQL()
	}
	return ledger.OpenSQL(path)
}

// reportSink logs the validation reports pushed by the reader sessions.
func reportSink(log zerolog.Logger) transport.InternalSink {
	return transport.SinkFunc(func(_ context.Context, cmd protocol.Command, payload []byte) ([]byte, error) {
		if cmd != protocol.PutInternal {
			return nil, nil
		}
		r, err := ppets.DecodeReport(payload)
		if err != nil {
			return nil, err
		}
		outcomes := make([]string, len(r.Outcomes))
		for i, o := range r.Outcomes {
			outcomes[i] = o.String()
		}
		log.Info().
			Stringer("variant", r.Variant).
			Uint64("serial", r.Serial).
			Uint64("price", r.Price).
			Strs("outcomes", outcomes).
			Strs("skipped", r.SkippedChecks).
			Msg("validation report")
		return nil, nil
	})
}

func serve(ctx context.Context, e *env, params ppets.Parameters, store ledger.Store) error {
	sink := reportSink(e.log)
	session := func(ctx context.Context, conn transport.Conn) {
		c := ppets.NewReaderContext(e.provider,
			ppets.WithLogger(e.log),
			ppets.WithParameters(params),
			ppets.WithLedger(store),
			ppets.WithPolicy(e.cfg.Reader.Policy),
			ppets.WithPool(e.pool),
		)
		m, err := ppets.NewReader(e.variant, c,
			protocol.WithLogger(e.log),
			protocol.WithTimeout(e.timeout),
		)
		if err != nil {
			e.log.Error().Err(err).Msg("failed to create reader")
			return
		}
		start := protocol.StartMessage()
		res := m.Run(ctx, transport.WithInternal(conn, sink), &start)
		e.log.Info().
			Stringer("status", res.Status).
			Stringer("stage", c.Stage()).
			AnErr("error", res.Err).
			Msg("session finished")
	}

	mux := http.NewServeMux()
	mux.Handle(e.cfg.Reader.Path, ws.NewHandler(session, e.log))
	srv := &http.Server{
		Addr:              e.cfg.Reader.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	e.log.Info().
		Str("listen", srv.Addr).
		Str("path", e.cfg.Reader.Path).
		Stringer("variant", e.variant).
		Msg("reader listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
