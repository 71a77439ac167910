// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// State backends.
const (
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

// Telemetry exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// OTLP protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken     string
	GeminiAPIKey         string
	GeminiModel          string
	StateBackend         string
	DatabaseURL          string
	BoltPath             string
	LogLevel             string
	LogFormat            string
	WhitelistedUserIDs   []int64
	WhitelistedUsernames []string
	AssignmentCacheSize  int
	HTTPAddr             string
	TelemetryExporter    string
	OTLPProtocol         string
	ServiceName          string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         os.Getenv("GEMINI_MODEL"),
		StateBackend:        strings.ToLower(envOr("STATE_BACKEND", BackendPostgres)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		BoltPath:            envOr("BOLT_PATH", "splitly.db"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
		LogFormat:           envOr("LOG_FORMAT", "console"),
		AssignmentCacheSize: 128,
		HTTPAddr:            envOr("HTTP_ADDR", ":8080"),
		TelemetryExporter:   strings.ToLower(envOr("TELEMETRY_EXPORTER", ExporterNone)),
		OTLPProtocol:        strings.ToLower(envOr("OTEL_EXPORTER_OTLP_PROTOCOL", ProtocolGRPC)),
		ServiceName:         envOr("SERVICE_NAME", "splitly-bot"),
	}

	var errs []string

	if sizeStr := os.Getenv("ASSIGNMENT_CACHE_SIZE"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size < 0 {
			errs = append(errs, fmt.Sprintf("ASSIGNMENT_CACHE_SIZE must be a non-negative integer, got %q", sizeStr))
		} else {
			cfg.AssignmentCacheSize = size
		}
	}

	for idStr := range strings.SplitSeq(os.Getenv("WHITELISTED_USER_IDS"), ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		cfg.WhitelistedUserIDs = append(cfg.WhitelistedUserIDs, id)
	}

	for username := range strings.SplitSeq(os.Getenv("WHITELISTED_USERNAMES"), ",") {
		username = strings.TrimPrefix(strings.TrimSpace(username), "@")
		if username == "" {
			continue
		}
		cfg.WhitelistedUsernames = append(cfg.WhitelistedUsernames, username)
	}

	if err := cfg.validate(errs); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// validate checks that all required configuration is present.
// Problems found while parsing are passed in so every error is reported at once.
func (c *Config) validate(errs []string) error {
	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.GeminiAPIKey == "" {
		errs = append(errs, "GEMINI_API_KEY is required")
	}

	switch c.StateBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when STATE_BACKEND=postgres")
		}
	case BackendBolt:
		if c.BoltPath == "" {
			errs = append(errs, "BOLT_PATH is required when STATE_BACKEND=bolt")
		}
	default:
		errs = append(errs, fmt.Sprintf("STATE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendBolt, c.StateBackend))
	}

	if !slices.Contains([]string{ExporterNone, ExporterStdout, ExporterOTLP}, c.TelemetryExporter) {
		errs = append(errs, fmt.Sprintf("TELEMETRY_EXPORTER must be one of none, stdout, otlp, got %q", c.TelemetryExporter))
	}

	if c.TelemetryExporter == ExporterOTLP && c.OTLPProtocol != ProtocolGRPC && c.OTLPProtocol != ProtocolHTTP {
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER_OTLP_PROTOCOL must be %q or %q, got %q", ProtocolGRPC, ProtocolHTTP, c.OTLPProtocol))
	}

	if len(c.WhitelistedUserIDs) == 0 && len(c.WhitelistedUsernames) == 0 {
		errs = append(errs, "at least one whitelisted user (WHITELISTED_USER_IDS or WHITELISTED_USERNAMES) is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsUserWhitelisted checks if a Telegram user ID or username is in the whitelist.
// Returns true if either the user ID or username is whitelisted.
func (c *Config) IsUserWhitelisted(userID int64, username string) bool {
	if slices.Contains(c.WhitelistedUserIDs, userID) {
		return true
	}

	// Usernames compare case-insensitively.
	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, whitelisted := range c.WhitelistedUsernames {
			if strings.EqualFold(whitelisted, username) {
				return true
			}
		}
	}

	return false
}
