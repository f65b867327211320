// Package atmap collects ATM locations from several bank sites, removes
// exact duplicates, reconciles features that share a coordinate and writes
// one GeoJSON collection per region and category.
//
// Example usage:
//
//	am, err := atmap.New(atmap.WithStore(store.New("mx")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := am.Run(ctx, sources.Request{Regions: regions.List()})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
package atmap

import (
	"context"
	"fmt"

	"github.com/agentstation/atmap/internal/metrics"
	"github.com/agentstation/atmap/internal/sources/registry"
	"github.com/agentstation/atmap/internal/sources/site"
	"github.com/agentstation/atmap/internal/store"
	"github.com/agentstation/atmap/pkg/sources"
)

// Atmap runs ingestion and the fix pass over one output directory.
type Atmap interface {
	// Run fetches req from every configured source, reconciles the
	// features and writes the raw collections.
	Run(ctx context.Context, req sources.Request) (*Result, error)

	// Fix rewrites every raw collection of the store as a fixed one.
	Fix(ctx context.Context, featureType string) (*FixResult, error)

	// OnFeatureMerged registers a callback for features reconciled at a
	// shared coordinate
	OnFeatureMerged(FeatureMergedHook)

	// OnCollectionWritten registers a callback for every written file
	OnCollectionWritten(CollectionWrittenHook)
}

// atmap is the internal implementation of the Atmap interface
type atmap struct {
	config *config
	hooks  *hooks
}

// New creates a new Atmap instance with the given options. Without
// WithSources every known bank source is used.
func New(opts ...Option) (Atmap, error) {
	am := &atmap{
		config: defaultConfig(),
		hooks:  newHooks(),
	}

	if err := am.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}

	if am.config.sources == nil {
		all, err := registry.Build(site.Config{})
		if err != nil {
			return nil, fmt.Errorf("building sources: %w", err)
		}
		am.config.sources = all
	}

	if am.config.store == nil {
		am.config.store = store.New("", store.WithLogger(am.config.logger))
	}

	if am.config.metrics == nil && am.config.metricsPath != "" {
		am.config.metrics = metrics.New()
	}
	if am.config.metrics != nil {
		am.hooks.next = am.config.metrics
	}

	return am, nil
}

// OnFeatureMerged registers a callback for features reconciled at a shared
// coordinate.
func (a *atmap) OnFeatureMerged(fn FeatureMergedHook) {
	a.hooks.OnFeatureMerged(fn)
}

// OnCollectionWritten registers a callback for every written file.
func (a *atmap) OnCollectionWritten(fn CollectionWrittenHook) {
	a.hooks.OnCollectionWritten(fn)
}
