// Package app provides the application context and dependency management
// for the atmap CLI: configuration, logging and the construction of the
// atmap engine that commands run.
package app

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/atmap"
	"github.com/agentstation/atmap/internal/appcontext"
	"github.com/agentstation/atmap/internal/sources/site"
	"github.com/agentstation/atmap/internal/transport"
	"github.com/agentstation/atmap/pkg/constants"
)

// App represents the atmap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
}

var _ appcontext.Interface = (*App)(nil)

// New creates a new App instance with the given version information.
// Configuration is loaded first and can be replaced with options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	a := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if a.config == nil {
		config, err := LoadConfig("")
		if err != nil {
			return nil, err
		}
		a.config = config
	}
	if a.logger == nil {
		logger := NewLogger(a.config)
		a.logger = &logger
	}

	return a, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the output format selected by flag or configuration.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// OutputDir returns the directory collections are written to.
func (a *App) OutputDir() string {
	return a.config.OutputDir
}

// SiteConfig returns the configuration shared by every bank source.
func (a *App) SiteConfig() site.Config {
	retry := transport.DefaultRetryConfig()
	retry.MaxRetries = a.config.MaxRetries

	return site.Config{
		Concurrency: a.config.RequestConcurrency,
		ClientOptions: []transport.Option{
			transport.WithTimeout(a.config.HTTPTimeout),
			transport.WithRequestDelay(a.config.RequestDelay),
			transport.WithRetry(retry),
		},
	}
}

// AtmapWithOptions creates an atmap instance from the configuration.
// opts are applied after the configured ones and win on conflict.
func (a *App) AtmapWithOptions(opts ...atmap.Option) (atmap.Atmap, error) {
	return atmap.New(append(a.atmapOptions(), opts...)...)
}

func (a *App) atmapOptions() []atmap.Option {
	opts := []atmap.Option{
		atmap.WithLogger(a.logger),
		atmap.WithConcurrency(a.config.Concurrency),
		atmap.WithDeterministicCanonical(a.config.Deterministic),
	}
	if a.config.Timeout > 0 {
		opts = append(opts, atmap.WithTimeout(a.config.Timeout))
	} else {
		opts = append(opts, atmap.WithTimeout(constants.SourceFetchTimeout))
	}
	if a.config.MetricsFile != "" {
		opts = append(opts, atmap.WithMetricsTextfile(a.config.MetricsFile))
	}
	return opts
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if err := config.Validate(); err != nil {
			return err
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
