package registry

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/reconciler"
)

type options struct {
	logger   *zerolog.Logger
	observer Observer
	strategy reconciler.Strategy
}

func defaultOptions() *options {
	return &options{
		logger:   defaultLogger(),
		observer: nopObserver{},
		strategy: reconciler.NewFirstArrivalStrategy(),
	}
}

// Option configures a Registry.
type Option func(*options) error

func newOptions(opts ...Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithLogger sets the logger used for conflict and rejection diagnostics.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return &errors.ValidationError{Field: "logger", Message: "cannot be nil"}
		}
		o.logger = logger
		return nil
	}
}

// WithObserver sets the observer notified of every Accept outcome.
func WithObserver(observer Observer) Option {
	return func(o *options) error {
		if observer == nil {
			return &errors.ValidationError{Field: "observer", Message: "cannot be nil"}
		}
		o.observer = observer
		return nil
	}
}

// WithStrategy sets how the canonical feature at a coordinate is chosen.
func WithStrategy(strategy reconciler.Strategy) Option {
	return func(o *options) error {
		if strategy == nil {
			return &errors.ValidationError{Field: "strategy", Message: "cannot be nil"}
		}
		o.strategy = strategy
		return nil
	}
}

// WithDeterministicCanonical makes the non-mergeable properties at a
// coordinate come from the contribution with the smallest bank name and
// fingerprint, so the result does not depend on arrival order.
func WithDeterministicCanonical(enabled bool) Option {
	return func(o *options) error {
		if enabled {
			o.strategy = reconciler.NewLowestSourceStrategy()
		} else {
			o.strategy = reconciler.NewFirstArrivalStrategy()
		}
		return nil
	}
}
