// Package logging provides structured logging for atmap using zerolog.
// Console output is used when stderr is a terminal, JSON everywhere else,
// so the conflict diagnostics emitted during a run can be audited later.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("source", "banamex").Msg("Fetching region")
//
//	ctx := logging.WithRunID(context.Background(), runID)
//	logging.FromContext(ctx).Warn().Str("name", "Centro").Msg("Duplicated coordinates")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment variables read by the default logger before any
// configuration is applied.
const (
	EnvLevel  = "ATMAP_LOG_LEVEL"
	EnvFormat = "ATMAP_LOG_FORMAT"
)

// defaultLogger is used until SetDefault is called and by every
// component built without an explicit logger.
var defaultLogger = NewLoggerFromConfig(envConfig())

func envConfig() *Config {
	cfg := DefaultConfig()
	if level := os.Getenv(EnvLevel); level != "" {
		cfg.Level = level
	}
	if format := os.Getenv(EnvFormat); format != "" {
		cfg.Format = format
	}
	return cfg
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

func terminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
