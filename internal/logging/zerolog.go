package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// ZerologConfig configures the infrastructure logger.
type ZerologConfig struct {
	Level          string
	File           io.Writer
	GraylogEnabled bool
	GraylogAddress string
}

// ParseZerologLevel converts a config level string. Unknown levels are INFO.
func ParseZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds the logger used by the database and influx managers:
// console output, an optional plain-text file, and optionally GELF to Graylog.
// The returned closer releases the Graylog connection; it is never nil.
func NewZerolog(cfg ZerologConfig) (zerolog.Logger, io.Closer, error) {
	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339},
	}
	if cfg.File != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: cfg.File, TimeFormat: time.RFC3339, NoColor: true})
	}

	var closer io.Closer = nopCloser{}
	if cfg.GraylogEnabled {
		gw, err := gelf.NewWriter(cfg.GraylogAddress)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("connecting to graylog at %s: %w", cfg.GraylogAddress, err)
		}
		writers = append(writers, gw)
		closer = gw
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseZerologLevel(cfg.Level)).
		With().Timestamp().Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
