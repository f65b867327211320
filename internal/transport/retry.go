package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/agentstation/atmap/pkg/constants"
)

// RetryConfig bounds the retries of one request.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      constants.MaxRetries,
		InitialInterval: constants.RetryBackoff,
		MaxInterval:     constants.MaxRetryBackoff,
	}
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.InitialInterval
	exp.MaxInterval = c.MaxInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, c.MaxRetries), ctx)
}

// Retry runs op until it succeeds, returns a Permanent error, exhausts the
// configured retries or ctx is done. The last error is returned.
func Retry(ctx context.Context, cfg RetryConfig, op func() error) error {
	return backoff.Retry(op, cfg.backOff(ctx))
}

// Permanent wraps err so that Retry stops immediately. Retry unwraps it
// before returning.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
