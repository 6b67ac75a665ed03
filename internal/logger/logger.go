// Package logger provides JSON structured logging using zerolog.
//
// Components receive a zerolog.Logger through their constructors; the
// process-wide logger built here is only used by the composition root.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log output for the process.
type Config struct {
	Level  string `toml:"level"`  // trace, debug, info, warn, error
	Debug  bool   `toml:"debug"`  // forces debug level
	Output string `toml:"output"` // "stdout" or "stderr"
}

// New builds the root logger from config.
func New(cfg Config) (zerolog.Logger, error) {
	var output io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		output = os.Stderr
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
		level = parsed
	}

	zerolog.TimeFieldFormat = time.RFC3339

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// Component returns a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
