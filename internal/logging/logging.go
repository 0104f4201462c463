package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"smartstart/internal/config"
)

// New builds the process logger. Pretty output goes through zerolog's console writer;
// otherwise one JSON object is written per line.
func New(cfg config.LoggingConfig) zerolog.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

func NewWithWriter(w io.Writer, cfg config.LoggingConfig) zerolog.Logger {
	out := w
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
