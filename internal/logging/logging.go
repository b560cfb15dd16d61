// Package logging configures the process-wide zerolog logger.
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

// Init sets the global level and output format. Format is "console" or "json".
func Init(level, format string) error {
	return InitWithWriter(level, format, os.Stdout)
}

func InitWithWriter(level, format string, out io.Writer) error {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	zerolog.TimeFieldFormat = time.RFC3339

	output := out
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case "json":
	default:
		return fmt.Errorf("invalid log format %q: use console or json", format)
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return nil
}

// MaskSecret keeps the first and last four characters of a credential.
func MaskSecret(secret string) string {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 8 {
		return strings.Repeat("*", len(trimmed))
	}
	return trimmed[:4] + "..." + trimmed[len(trimmed)-4:]
}
