package atmap

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/atmap/internal/metrics"
	"github.com/agentstation/atmap/internal/store"
	"github.com/agentstation/atmap/pkg/constants"
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/logging"
	"github.com/agentstation/atmap/pkg/registry"
	"github.com/agentstation/atmap/pkg/sources"
)

// config holds the configuration for an Atmap instance
type config struct {
	sources       *sources.Sources
	registry      *registry.Registry
	deterministic bool
	store         *store.Store
	concurrency   int
	timeout       time.Duration
	metrics       *metrics.Metrics
	metricsPath   string
	logger        *zerolog.Logger
}

func defaultConfig() *config {
	return &config{
		concurrency: constants.MaxConcurrentSources,
		timeout:     constants.SourceFetchTimeout,
		logger:      logging.Default(),
	}
}

// Option is a function that configures an Atmap instance
type Option func(*config) error

// options applies the given options to the instance
func (a *atmap) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(a.config); err != nil {
			return err
		}
	}
	return nil
}

// WithSources configures the sources to fetch from
func WithSources(srcs ...sources.Source) Option {
	return func(c *config) error {
		if len(srcs) == 0 {
			return &errors.ValidationError{Field: "sources", Message: "at least one source is required"}
		}
		c.sources = sources.NewSources(srcs...)
		return nil
	}
}

// WithRegistry makes every run accept into reg instead of a fresh
// registry. Features accumulate across runs. The registry's own observer
// is used, so merge hooks and metrics are not fed.
func WithRegistry(reg *registry.Registry) Option {
	return func(c *config) error {
		if reg == nil {
			return &errors.ValidationError{Field: "registry", Message: "cannot be nil"}
		}
		c.registry = reg
		return nil
	}
}

// WithDeterministicCanonical configures whether the canonical feature at a
// coordinate is chosen independently of arrival order
func WithDeterministicCanonical(enabled bool) Option {
	return func(c *config) error {
		c.deterministic = enabled
		return nil
	}
}

// WithStore configures where collections are written
func WithStore(s *store.Store) Option {
	return func(c *config) error {
		if s == nil {
			return &errors.ValidationError{Field: "store", Message: "cannot be nil"}
		}
		c.store = s
		return nil
	}
}

// WithConcurrency configures how many sources fetch at the same time
func WithConcurrency(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return &errors.ValidationError{Field: "concurrency", Value: n, Message: "must be positive"}
		}
		c.concurrency = n
		return nil
	}
}

// WithTimeout configures the time limit of each source fetch
func WithTimeout(d time.Duration) Option {
	return func(c *config) error {
		c.timeout = d
		return nil
	}
}

// WithMetrics configures the metrics fed by every run
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}

// WithMetricsTextfile configures a file the metrics are written to after
// every run
func WithMetricsTextfile(path string) Option {
	return func(c *config) error {
		c.metricsPath = path
		return nil
	}
}

// WithLogger configures the logger
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return &errors.ValidationError{Field: "logger", Message: "cannot be nil"}
		}
		c.logger = logger
		return nil
	}
}
