package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	t.Run("sets debug level", func(t *testing.T) {
		SetLevel("debug")
		require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})

	t.Run("is case-insensitive", func(t *testing.T) {
		SetLevel("WARN")
		require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	})

	t.Run("sets error level", func(t *testing.T) {
		SetLevel("error")
		require.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
	})

	t.Run("defaults to info for unknown level", func(t *testing.T) {
		SetLevel("unknown")
		require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	// Reset to debug for other tests.
	SetLevel("debug")
}

func TestConfigure(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		Configure("info", "json")
		require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
		Log.Info().Str("key", "value").Msg("json message")
	})

	t.Run("console format", func(t *testing.T) {
		Configure("debug", "console")
		require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
		Log.Debug().Int("count", 42).Msg("console message")
	})
}

func TestForChat(t *testing.T) {
	l := ForChat(12345)
	l.Info().Msg("chat scoped message")
}
