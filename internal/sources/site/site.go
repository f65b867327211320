// Package site holds what the bank sources share: their configuration and
// the bounded fan-out used to walk a site's administrative hierarchy.
package site

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/atmap/internal/transport"
	"github.com/agentstation/atmap/pkg/constants"
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/logging"
)

// Config configures one bank source.
type Config struct {
	// BaseURL overrides the site's default endpoint.
	BaseURL string

	// Client performs the requests. A client built from ClientOptions is
	// created when nil.
	Client *transport.Client

	// ClientOptions configure the client created when Client is nil.
	ClientOptions []transport.Option

	// Concurrency bounds in-flight requests within the source.
	Concurrency int
}

// Resolve fills unset fields with defaults for source id.
func (c Config) Resolve(id, baseURL string) Config {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Client == nil {
		c.Client = transport.New(id, c.ClientOptions...)
	}
	if c.Concurrency <= 0 {
		c.Concurrency = constants.MaxConcurrentRequests
	}
	return c
}

// ForEach calls fn for every item with at most limit calls in flight.
// Failures are logged and the walk continues. It returns an error when ctx
// is canceled or when every call failed.
func ForEach[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) error {
	if len(items) == 0 {
		return nil
	}

	logger := logging.FromContext(ctx)
	var (
		mu   sync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := fn(ctx, item); err != nil {
				logger.Warn().Err(err).Msg("Skipping unit after error")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return errors.Join(errors.ErrCanceled, err)
	}
	if len(errs) == len(items) {
		return errors.Join(errs...)
	}
	return nil
}

// Coordinate parses a longitude or latitude as sent by a site.
func Coordinate(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.NewParseError("text", "", "invalid coordinate "+strconv.Quote(s), err)
	}
	return f, nil
}
