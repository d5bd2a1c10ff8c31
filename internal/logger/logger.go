// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"upmon/internal/config"
)

// Setup configures the global logger from cfg and returns it.
//
// Output goes to w, or stderr when w is nil. JSON lines are written unless
// cfg.Pretty is set, in which case a human-readable console format is used.
func Setup(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	if w == nil {
		w = os.Stderr
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(w).With().Timestamp().Str("service", "upmon").Logger()
	log.Logger = logger
	return logger, nil
}
