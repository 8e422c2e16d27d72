package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 1, cfg.LogLevel)
	assert.Equal(t, "fgp", cfg.Variant)
	assert.Equal(t, 10, cfg.TimeoutSeconds)
	assert.Equal(t, ":7878", cfg.Reader.Listen)
	assert.Equal(t, "/ppets", cfg.Reader.Path)
	assert.EqualValues(t, 100, cfg.Reader.Policy.Price)
	assert.Equal(t, "ws://localhost:7878/ppets", cfg.Device.Connect)
}

func TestLoad(t *testing.T) {
	path := write(t, `
log_format: json
variant: abc
reader:
  listen: ":9000"
  parameters: ["true", "3", "A1", "3", "160"]
  ledger: /tmp/ledger.db
  policy:
    price: 50
    discounts:
      student: 20
    required: [adult]
device:
  attributes: [adult, student]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 1, cfg.LogLevel)
	assert.Equal(t, "abc", cfg.Variant)
	assert.Equal(t, ":9000", cfg.Reader.Listen)
	assert.Equal(t, []string{"true", "3", "A1", "3", "160"}, cfg.Reader.Parameters)
	assert.EqualValues(t, 50, cfg.Reader.Policy.Price)
	assert.EqualValues(t, 20, cfg.Reader.Policy.Discounts["student"])
	assert.Equal(t, []string{"adult"}, cfg.Reader.Policy.Required)
	assert.Equal(t, []string{"adult", "student"}, cfg.Device.Attributes)
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"log format": "log_format: xml",
		"log level":  "log_level: 9",
		"variant":    "variant: xyz",
		"yaml":       "variant: [",
	} {
		_, err := Load(write(t, content))
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// Session parameters are applied, and rejected, by the reader when it starts.
func TestLoadKeepsParameters(t *testing.T) {
	cfg, err := Load(write(t, "reader:\n  parameters: [\"false\", \"2\", \"Z\"]"))
	require.NoError(t, err)
	assert.Equal(t, []string{"false", "2", "Z"}, cfg.Reader.Parameters)
}
