// Package registry maps source ids to the bank source implementations.
// This package is separate from pkg/sources to avoid circular dependencies.
package registry

import (
	"fmt"
	"sort"

	"github.com/agentstation/atmap/internal/sources/banamex"
	"github.com/agentstation/atmap/internal/sources/bbva"
	"github.com/agentstation/atmap/internal/sources/santander"
	"github.com/agentstation/atmap/internal/sources/site"
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/sources"
)

// Factory creates a source from its site configuration.
type Factory func(site.Config) sources.Source

var registry = map[sources.ID]Factory{
	sources.BanamexID:   func(cfg site.Config) sources.Source { return banamex.New(cfg) },
	sources.BBVAID:      func(cfg site.Config) sources.Source { return bbva.New(cfg) },
	sources.SantanderID: func(cfg site.Config) sources.Source { return santander.New(cfg) },
}

// Get creates a NEW source for id. Each call returns a fresh source with
// its own HTTP client unless cfg carries one.
func Get(id sources.ID, cfg site.Config) (sources.Source, error) {
	factory, ok := registry[id]
	if !ok {
		return nil, &errors.ValidationError{
			Field:   "source",
			Value:   id,
			Message: fmt.Sprintf("unsupported source: %s", id),
		}
	}
	return factory(cfg), nil
}

// Has checks if a source id has an implementation.
func Has(id sources.ID) bool {
	_, ok := registry[id]
	return ok
}

// List returns the ids with an implementation, sorted.
func List() []sources.ID {
	ids := make([]sources.ID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Build creates the sources named by ids, or every source when ids is
// empty. Every source gets its own copy of cfg.
func Build(cfg site.Config, ids ...sources.ID) (*sources.Sources, error) {
	if len(ids) == 0 {
		ids = List()
	}
	out := sources.NewSources()
	for _, id := range ids {
		src, err := Get(id, cfg)
		if err != nil {
			return nil, err
		}
		out.Set(id, src)
	}
	return out, nil
}
