package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gracechat-server/internal/config"
)

// New creates the root zerolog.Logger for the chat service. Console output
// keeps its colors in development and drops them in production, where logs
// land in a collector rather than a terminal.
func New(cfg *config.Config) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.Environment == "production",
	}
	return zerolog.New(output).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Logger().
		Level(parseLevel(cfg.LogLevel))
}

func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
