// Package config loads the YAML configuration of the ppets command.
package config

import (
	"fmt"
	"os"

	"github.com/bets-framework/ppets/protocols/ppets"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of a reader or a device.
type Config struct {
	LogLevel  int    `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Variant is "abc", "fgp" or "fgp-lite".
	Variant string `yaml:"variant"`
	// TimeoutSeconds bounds each wait for the peer.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	Reader ReaderConfig `yaml:"reader"`
	Device DeviceConfig `yaml:"device"`
}

// ReaderConfig is used by `ppets reader`.
type ReaderConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
	// Parameters is the positional session parameter list:
	// skipVerification numValidations pairingFamily strengthParam1 strengthParam2.
	Parameters []string `yaml:"parameters"`
	// Ledger is the SQLite file of consumed tickets. Empty keeps them in memory.
	Ledger string       `yaml:"ledger"`
	Policy ppets.Policy `yaml:"policy"`
}

// DeviceConfig is used by `ppets device`.
type DeviceConfig struct {
	Connect    string   `yaml:"connect"`
	Attributes []string `yaml:"attributes"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	cfg := &Config{LogLevel: int(zerolog.InfoLevel)}
	// defaults cannot fail validation
	_ = validateConfig(cfg)
	return cfg
}

// Load reads the configuration file at path, filling defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{LogLevel: int(zerolog.InfoLevel)}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.LogLevel < int(zerolog.TraceLevel) || cfg.LogLevel > int(zerolog.PanicLevel) {
		return fmt.Errorf("log level must be between %d and %d", zerolog.TraceLevel, zerolog.PanicLevel)
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	if cfg.Variant == "" {
		cfg.Variant = ppets.FGP.String()
	}
	if _, err := ppets.ParseVariant(cfg.Variant); err != nil {
		return err
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 10
	}

	if cfg.Reader.Listen == "" {
		cfg.Reader.Listen = ":7878"
	}
	if cfg.Reader.Path == "" {
		cfg.Reader.Path = "/ppets"
	}
	if cfg.Reader.Policy.Price == 0 && len(cfg.Reader.Policy.Discounts) == 0 {
		cfg.Reader.Policy.Price = ppets.DefaultPolicy().Price
	}

	if cfg.Device.Connect == "" {
		cfg.Device.Connect = "ws://localhost:7878/ppets"
	}
	return nil
}
