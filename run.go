package atmap

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/exporter"
	"github.com/agentstation/atmap/pkg/logging"
	"github.com/agentstation/atmap/pkg/registry"
	"github.com/agentstation/atmap/pkg/sources"
)

// Run fetches req from every source, reconciles what they return and
// writes one raw collection per bucket.
func (a *atmap) Run(ctx context.Context, req sources.Request) (*Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Validate the request before any site is queried
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	logger := a.config.logger.With().Str("run_id", result.RunID).Logger()
	ctx = logging.WithLogger(ctx, &logger)
	ctx = logging.WithRunID(ctx, result.RunID)

	// Step 2: Registry for this run
	reg, err := a.runRegistry()
	if err != nil {
		return nil, err
	}
	logger.Info().
		Strs("sources", idStrings(a.config.sources.IDs())).
		Int("regions", len(req.RegionList())).
		Msg("Starting run")

	// Step 3: Fetch from every source into the registry
	pipelineOpts := []sources.PipelineOption{
		sources.WithConcurrency(a.config.concurrency),
		sources.WithTimeout(a.config.timeout),
		sources.WithLogger(&logger),
	}
	if a.config.metrics != nil {
		pipelineOpts = append(pipelineOpts, sources.WithFetchObserver(a.config.metrics))
	}
	pipeline := sources.NewPipeline(a.config.sources.List(), pipelineOpts...)
	result.Fetch, err = pipeline.Run(ctx, req, reg)
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	// Step 4: Export every bucket in a reproducible order
	for _, c := range exporter.Flush(reg) {
		path, err := a.config.store.WriteRaw(c)
		if err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		result.Collections = append(result.Collections, CollectionSummary{
			Region:   c.Region,
			Category: c.Category,
			Features: c.Len(),
			Path:     path,
		})
		a.hooks.triggerCollectionWritten(c, path)
	}

	// Step 5: Dump metrics when asked to
	if a.config.metricsPath != "" {
		if err := a.config.metrics.WriteTextfile(a.config.metricsPath); err != nil {
			logger.Warn().Err(err).Str("path", a.config.metricsPath).Msg("Failed to write metrics")
		}
	}

	result.Duration = time.Since(start)
	logger.Info().
		Int("collections", len(result.Collections)).
		Int("features", result.Features()).
		Dur("duration", result.Duration).
		Msg(result.Summary())
	return result, nil
}

// runRegistry returns the configured registry, or a fresh one observed by
// the hooks.
func (a *atmap) runRegistry() (*registry.Registry, error) {
	if a.config.registry != nil {
		return a.config.registry, nil
	}
	reg, err := registry.New(
		registry.WithLogger(a.config.logger),
		registry.WithObserver(a.hooks),
		registry.WithDeterministicCanonical(a.config.deterministic),
	)
	if err != nil {
		return nil, errors.NewConfigError("registry", "invalid registry options", err)
	}
	return reg, nil
}

func idStrings(ids []sources.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
