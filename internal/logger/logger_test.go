package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFormats(t *testing.T) {
	t.Run("json format logs expected fields", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, int(zerolog.InfoLevel), "json")
		log.Info().Str("key", "value").Msg("json_test")
		require.Contains(t, buf.String(), `"message":"json_test"`)
		require.Contains(t, buf.String(), `"key":"value"`)
	})

	t.Run("console format logs human readable output", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, int(zerolog.DebugLevel), "console")
		log.Debug().Str("env", "test").Msg("console_log")
		require.Contains(t, buf.String(), "console_log")
		require.Contains(t, buf.String(), "env=test")
	})

	t.Run("level filters output", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, int(zerolog.WarnLevel), "json")
		log.Info().Msg("hidden")
		require.Empty(t, buf.String())
	})
}
