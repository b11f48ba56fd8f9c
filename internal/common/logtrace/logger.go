// Package logtrace configures the process-wide zerolog logger used by restspec.
package logtrace

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "warn"

// InitLogger initializes the global logger with Unix millisecond timestamps writing to
// stderr. An empty or unknown level falls back to DefaultLevel.
func InitLogger(level string) {
	initLogger(os.Stderr, level)
}

// InitConsoleLogger is InitLogger with zerolog's human-readable console writer, used by
// the CLI.
func InitConsoleLogger(level string) {
	initLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, level)
}

func initLogger(w io.Writer, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel converts a level name into a zerolog level.
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		level = DefaultLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l == zerolog.NoLevel {
		l, _ = zerolog.ParseLevel(DefaultLevel)
	}
	return l
}

// RequestIdFromContext returns the request id stored by the mock server's request
// logger, or "".
func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(RequestIdKey).(string)
	if !ok {
		return ""
	}
	return r
}

type requestIdContextKey string

// RequestIdKey is the context key holding the request id.
const RequestIdKey = requestIdContextKey("requestId")
