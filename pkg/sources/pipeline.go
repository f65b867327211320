package sources

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/atmap/pkg/constants"
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/logging"
)

// FetchObserver is told how long every source took.
type FetchObserver interface {
	ObserveFetch(id ID, duration time.Duration, err error)
}

// Pipeline runs a set of sources concurrently into one sink.
type Pipeline struct {
	sources     []Source
	concurrency int
	timeout     time.Duration
	observer    FetchObserver
	logger      *zerolog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithConcurrency limits how many sources fetch at the same time.
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithTimeout bounds the duration of each source's fetch.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// WithFetchObserver sets the observer told about every fetch.
func WithFetchObserver(o FetchObserver) PipelineOption {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a pipeline over sources.
func NewPipeline(sources []Source, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		sources:     sources,
		concurrency: constants.MaxConcurrentSources,
		timeout:     constants.SourceFetchTimeout,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats contains statistics about a source's contribution.
type Stats struct {
	Submitted int
	Rejected  int
	Duration  time.Duration
	Err       error
}

// Succeeded reports whether the source finished without error.
func (s *Stats) Succeeded() bool {
	return s.Err == nil
}

// Result contains the outcome of a pipeline run.
type Result struct {
	Stats      map[ID]*Stats
	ExecutedAt time.Time
	Duration   time.Duration
}

// Failed returns the sorted ids of sources that returned an error.
func (r *Result) Failed() []ID {
	var ids []ID
	for id, s := range r.Stats {
		if !s.Succeeded() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	submitted, rejected := 0, 0
	for _, s := range r.Stats {
		submitted += s.Submitted
		rejected += s.Rejected
	}
	return fmt.Sprintf("%d features from %d/%d sources, %d rejected (took %v)",
		submitted, len(r.Stats)-len(r.Failed()), len(r.Stats), rejected, r.Duration.Round(time.Millisecond))
}

// Run fetches req from every source concurrently. A failing source does not
// stop the others; Run returns an error only when every source failed or
// ctx was canceled. The result is returned in both cases.
func (p *Pipeline) Run(ctx context.Context, req Request, sink Sink) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{
		Stats:      make(map[ID]*Stats, len(p.sources)),
		ExecutedAt: start,
	}
	if len(p.sources) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, src := range p.sources {
		g.Go(func() error {
			stats := p.fetch(gctx, src, req, sink)
			mu.Lock()
			result.Stats[src.ID()] = stats
			mu.Unlock()
			// Failures are kept in stats.
			return nil
		})
	}
	_ = g.Wait()
	result.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return result, errors.Join(errors.ErrCanceled, err)
	}

	failed := result.Failed()
	if len(failed) == len(p.sources) {
		errs := make([]error, 0, len(failed))
		for _, id := range failed {
			errs = append(errs, result.Stats[id].Err)
		}
		return result, errors.Join(errs...)
	}

	p.logger.Info().
		Int("sources", len(p.sources)).
		Int("failed", len(failed)).
		Dur("duration", result.Duration).
		Msg(result.Summary())
	return result, nil
}

func (p *Pipeline) fetch(ctx context.Context, src Source, req Request, sink Sink) *Stats {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	logger := p.logger.With().Str("source", src.ID().String()).Logger()
	ctx = logging.WithLogger(ctx, &logger)
	logger.Info().Msg("Fetching source")

	counter := &countingSink{sink: sink}
	start := time.Now()
	err := src.Fetch(ctx, req, counter)
	stats := &Stats{
		Submitted: counter.submitted(),
		Rejected:  counter.rejected(),
		Duration:  time.Since(start),
	}
	if err != nil {
		stats.Err = errors.WrapSource(src.ID().String(), "", err)
		logger.Error().Err(err).Dur("duration", stats.Duration).Msg("Source failed")
	} else {
		logger.Info().
			Int("submitted", stats.Submitted).
			Int("rejected", stats.Rejected).
			Dur("duration", stats.Duration).
			Msg("Source finished")
	}

	if p.observer != nil {
		p.observer.ObserveFetch(src.ID(), stats.Duration, err)
	}
	return stats
}

// countingSink counts what a single source submits.
type countingSink struct {
	sink Sink

	mu       sync.Mutex
	accepted int
	failed   int
}

func (c *countingSink) Accept(region, category string, f *features.Feature) error {
	err := c.sink.Accept(region, category, f)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accepted++
	if err != nil {
		c.failed++
	}
	return err
}

func (c *countingSink) submitted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accepted
}

func (c *countingSink) rejected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}
