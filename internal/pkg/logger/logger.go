package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Call once at start-up, after
// loading config. format "console" gives human readable output.
func Init(level, format string) zerolog.Logger {
	return InitWriter(os.Stdout, level, format)
}

func InitWriter(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(w).With().Timestamp().Str("service", "quote-engine").Logger()
	log.Logger = l
	// log.Ctx falls back to the global logger when no request logger is attached
	zerolog.DefaultContextLogger = &log.Logger

	if err != nil && level != "" {
		l.Warn().Str("configured_level", level).Msg("invalid LOG_LEVEL, defaulting to info")
	}
	l.Info().Str("level", lvl.String()).Msg("logger initialized")
	return l
}

// FromContext returns the request logger, or the global one.
func FromContext(ctx context.Context) *zerolog.Logger {
	return log.Ctx(ctx)
}

// ToContext attaches l to ctx.
func ToContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}
