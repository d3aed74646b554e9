package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/eudaimonent/freemoney-gobackend/internal/config"
)

// New builds the service logger according to the provided logging config.
func New(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", "freemoney").
		Logger()
}
