package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. Logs go to stderr so stdout carries
// only command results.
func Setup(level, format string) error {
	return SetupWriter(os.Stderr, level, format)
}

func SetupWriter(w io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	switch strings.ToLower(format) {
	case "json":
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (want console or json)", format)
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}
