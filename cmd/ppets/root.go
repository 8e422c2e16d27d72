package main

import (
	"crypto/rand"
	"time"

	"github.com/bets-framework/ppets/internal/config"
	"github.com/bets-framework/ppets/internal/logger"
	"github.com/bets-framework/ppets/pkg/bilinear"
	"github.com/bets-framework/ppets/pkg/pool"
	"github.com/bets-framework/ppets/protocols/ppets"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	flagConfig  = "config"
	flagVariant = "variant"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ppets",
		Short:         "Privacy-preserving e-ticketing reader and device",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String(flagConfig, "", "path to the YAML configuration")
	rootCmd.PersistentFlags().String(flagVariant, "", "protocol variant: abc, fgp or fgp-lite")

	rootCmd.AddCommand(readerCmd())
	rootCmd.AddCommand(deviceCmd())
	return rootCmd
}

// env is what every sub-command needs, built from the configuration and flags.
type env struct {
	cfg      *config.Config
	log      zerolog.Logger
	variant  ppets.Variant
	timeout  time.Duration
	pool     *pool.Pool
	provider bilinear.Provider
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString(flagConfig)
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if v, _ := cmd.Flags().GetString(flagVariant); v != "" {
		cfg.Variant = v
	}
	variant, err := ppets.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}
	pl := pool.NewPool(0)
	return &env{
		cfg:      cfg,
		log:      logger.New(cfg.LogLevel, cfg.LogFormat),
		variant:  variant,
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		pool:     pl,
		provider: bilinear.NewProvider(rand.Reader, pl),
	}, nil
}

func (e *env) close() {
	e.pool.TearDown()
}
