// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the global logger instance.
var Log zerolog.Logger

func init() {
	SetConsole()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// Configure applies the level and output format from configuration.
// Format "json" selects JSON lines; anything else uses the console writer.
func Configure(level, format string) {
	SetLevel(level)
	if strings.EqualFold(format, "json") {
		SetJSON()
		return
	}
	SetConsole()
}

// SetLevel sets the global log level.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// SetConsole switches to human-readable output (for development).
func SetConsole() {
	setOutput(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})
}

// SetJSON switches to JSON output (for production).
func SetJSON() {
	setOutput(os.Stdout)
}

func setOutput(w io.Writer) {
	Log = zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Logger()
}

// ForChat returns a child logger tagged with the hashed chat ID.
func ForChat(chatID int64) *zerolog.Logger {
	l := Log.With().Str("chat", HashChatID(chatID)).Logger()
	return &l
}
