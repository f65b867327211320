// Package registry holds the features accepted during one run, grouped into
// buckets by region and category.
//
// Within a bucket every coordinate key is occupied by exactly one canonical
// feature. A feature whose content was already seen in the bucket is
// dropped; a feature landing on an occupied coordinate is folded into the
// canonical feature by the reconciler.
//
// A Registry is safe for concurrent use. Accept calls on the same bucket are
// serialized; calls on different buckets run in parallel.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/fingerprint"
	"github.com/agentstation/atmap/pkg/logging"
	"github.com/agentstation/atmap/pkg/reconciler"
)

// Key identifies a bucket.
type Key struct {
	Region   string
	Category string
}

// String returns "region/category".
func (k Key) String() string {
	return k.Region + "/" + k.Category
}

// Registry is the per-run store of accepted features.
type Registry struct {
	mu      sync.RWMutex
	buckets map[Key]*Bucket

	reconciler *reconciler.Reconciler
	observer   Observer
	logger     *zerolog.Logger
}

// New creates an empty Registry.
func New(opts ...Option) (*Registry, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	rec, err := reconciler.New(reconciler.WithStrategy(options.strategy))
	if err != nil {
		return nil, err
	}

	return &Registry{
		buckets:    make(map[Key]*Bucket),
		reconciler: rec,
		observer:   options.observer,
		logger:     options.logger,
	}, nil
}

// Accept offers f to the (region, category) bucket, creating the bucket on
// first use. The registry takes ownership of f; callers must not modify it
// afterwards.
//
// Content already seen in the bucket is ignored. A feature lacking a
// baseline property is rejected with a *errors.MissingPropertyError and the
// bucket is left untouched.
func (r *Registry) Accept(region, category string, f *features.Feature) error {
	if f == nil {
		return &errors.ValidationError{Field: "feature", Message: "cannot be nil"}
	}

	if err := f.Validate(); err != nil {
		r.reject(region, category, f, err)
		return err
	}

	digest, err := fingerprint.Of(f)
	if err != nil {
		return errors.WrapParse("json", f.Describe(), err)
	}

	b := r.bucket(region, category)
	b.mu.Lock()
	notify, err := r.accept(b, region, category, f, digest)
	b.mu.Unlock()

	// Observers run outside the bucket lock so they may call back into
	// the registry.
	notify()
	return err
}

// accept applies f to b. The caller holds b.mu. The returned function
// notifies the observer of the outcome.
func (r *Registry) accept(b *Bucket, region, category string, f *features.Feature, digest fingerprint.Digest) (func(), error) {
	if _, seen := b.fingerprints[digest]; seen {
		r.logger.Trace().
			Str("region", region).
			Str("category", category).
			Str("fingerprint", digest.String()).
			Msg("Duplicate feature ignored")
		return func() { r.observer.FeatureDuplicate(region, category) }, nil
	}

	rank := reconciler.Rank{Bank: f.Properties.Text(features.PropBank), Digest: digest}
	key := f.Key()

	existing, ok := b.byCoordinate[key]
	if !ok {
		b.byCoordinate[key] = &entry{feature: f, rank: rank}
		b.collection = append(b.collection, f)
		b.fingerprints[digest] = struct{}{}
		return func() { r.observer.FeatureAccepted(region, category) }, nil
	}

	canonical := existing.feature.Describe()
	result, err := r.reconciler.Merge(existing.feature, f)
	if err != nil {
		r.logReject(region, category, f, err)
		return func() { r.observer.FeatureRejected(region, category, err) }, err
	}

	if r.reconciler.Strategy().Prefer(existing.rank, rank) {
		reconciler.Adopt(existing.feature, f)
		existing.rank = rank
		result.Adopted = true
	}
	b.fingerprints[digest] = struct{}{}

	r.logConflict(region, category, canonical, f, result)
	return func() { r.observer.FeatureMerged(region, category, result) }, nil
}

func (r *Registry) reject(region, category string, f *features.Feature, err error) {
	r.observer.FeatureRejected(region, category, err)
	r.logReject(region, category, f, err)
}

func (r *Registry) logReject(region, category string, f *features.Feature, err error) {
	r.logger.Error().
		Err(err).
		Str("region", region).
		Str("category", category).
		Str("bank", f.Properties.Text(features.PropBank)).
		Msg("Feature rejected")
}

func (r *Registry) logConflict(region, category, canonical string, incoming *features.Feature, result *reconciler.Result) {
	event := r.logger.Warn().
		Str("region", region).
		Str("category", category).
		Str("feature", canonical).
		Str("bank", incoming.Properties.Text(features.PropBank))
	if result.HasConflicts() {
		conflicts := make([]string, len(result.Conflicts))
		for i, c := range result.Conflicts {
			conflicts[i] = c.String()
		}
		event = event.Strs("conflicts", conflicts)
	}
	if result.Adopted {
		event = event.Bool("adopted", true)
	}
	event.Msg("Coordinate conflict")
}

// bucket returns the bucket for (region, category), creating it if needed.
func (r *Registry) bucket(region, category string) *Bucket {
	key := Key{Region: region, Category: category}

	r.mu.RLock()
	b, ok := r.buckets[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.buckets[key]; ok {
		return b
	}
	b = newBucket(key)
	r.buckets[key] = b
	return b
}

// Bucket returns the bucket for (region, category) and whether it exists.
func (r *Registry) Bucket(region, category string) (*Bucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[Key{Region: region, Category: category}]
	return b, ok
}

// Buckets returns the keys of every bucket, ordered by region then category.
func (r *Registry) Buckets() []Key {
	r.mu.RLock()
	keys := make([]Key, 0, len(r.buckets))
	for k := range r.buckets {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Region != keys[j].Region {
			return keys[i].Region < keys[j].Region
		}
		return keys[i].Category < keys[j].Category
	})
	return keys
}

// Len returns the total number of canonical features across all buckets.
func (r *Registry) Len() int {
	total := 0
	for _, k := range r.Buckets() {
		if b, ok := r.Bucket(k.Region, k.Category); ok {
			total += b.Len()
		}
	}
	return total
}

// String implements fmt.Stringer.
func (r *Registry) String() string {
	return fmt.Sprintf("Registry{buckets: %d, features: %d}", len(r.Buckets()), r.Len())
}

func defaultLogger() *zerolog.Logger {
	return logging.Default()
}
