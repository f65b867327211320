// Package sources defines the bank site collaborators that feed the
// registry and the pipeline that runs them.
//
// A Source walks a site's administrative hierarchy (state, municipality and
// whatever lies below), turns every record into a feature carrying the
// baseline properties and hands it to a Sink. Sources handle their own
// concurrency internally.
//
// Example usage:
//
//	reg, _ := registry.New()
//	pipeline := sources.NewPipeline([]sources.Source{banamex.New(cfg)})
//	result, err := pipeline.Run(ctx, sources.Request{Regions: regions.List()}, reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
package sources

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/agentstation/atmap/pkg/features"
)

// ID represents the identifier of a data source.
type ID string

// String returns the string representation of a source id.
func (id ID) String() string {
	return string(id)
}

// Known source ids.
const (
	BanamexID   ID = "banamex"
	BBVAID      ID = "bbva-bancomer"
	SantanderID ID = "santander"
)

// IDs returns all known source ids.
func IDs() []ID {
	return []ID{
		BanamexID,
		BBVAID,
		SantanderID,
	}
}

// IsValid returns true if the ID is one of the known ids.
func (id ID) IsValid() bool {
	return slices.Contains(IDs(), id)
}

// Categories a source files its features under.
const (
	CategoryATM   = "atm"
	CategoryOther = "other"
)

// Sink receives normalized features. *registry.Registry satisfies it.
type Sink interface {
	Accept(region, category string, f *features.Feature) error
}

// Source represents one bank site.
type Source interface {
	// ID returns the source identifier
	ID() ID

	// Name returns the bank name written into the bank property
	Name() string

	// Fetch retrieves every record matching req and submits it to sink.
	// A rejected feature is logged and skipped; Fetch fails only when the
	// site cannot be queried.
	Fetch(ctx context.Context, req Request, sink Sink) error
}

// Sources is a thread-safe container for managing multiple data sources.
type Sources struct {
	mu      sync.RWMutex
	sources map[ID]Source
}

// NewSources creates a new Sources instance.
func NewSources(srcs ...Source) *Sources {
	s := &Sources{
		sources: make(map[ID]Source, len(srcs)),
	}
	for _, src := range srcs {
		s.sources[src.ID()] = src
	}
	return s
}

// Get returns a source by ID.
func (s *Sources) Get(id ID) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, found := s.sources[id]
	return src, found
}

// Set sets a source by ID.
func (s *Sources) Set(id ID, src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[id] = src
}

// Delete deletes a source by ID.
func (s *Sources) Delete(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
}

// Len returns the number of sources.
func (s *Sources) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}

// List returns all sources ordered by id.
func (s *Sources) List() []Source {
	s.mu.RLock()
	sources := make([]Source, 0, len(s.sources))
	for _, src := range s.sources {
		sources = append(sources, src)
	}
	s.mu.RUnlock()

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].ID() < sources[j].ID()
	})
	return sources
}

// IDs returns the ids of all sources, sorted.
func (s *Sources) IDs() []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]ID, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
