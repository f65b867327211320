package registry

import (
	"slices"
	"sync"

	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/fingerprint"
	"github.com/agentstation/atmap/pkg/reconciler"
)

// entry is the canonical feature at one coordinate key together with the
// rank of the contribution its non-mergeable properties came from.
type entry struct {
	feature *features.Feature
	rank    reconciler.Rank
}

// Bucket stores the features of one region and category.
type Bucket struct {
	mu  sync.Mutex
	key Key

	fingerprints map[fingerprint.Digest]struct{}
	byCoordinate map[string]*entry
	collection   []*features.Feature
}

func newBucket(key Key) *Bucket {
	return &Bucket{
		key:          key,
		fingerprints: make(map[fingerprint.Digest]struct{}),
		byCoordinate: make(map[string]*entry),
	}
}

// Key returns the bucket's region and category.
func (b *Bucket) Key() Key {
	return b.key
}

// Len returns the number of canonical features.
func (b *Bucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.collection)
}

// Features returns the canonical features in insertion order. The slice is
// a copy; the features are shared with the bucket.
func (b *Bucket) Features() []*features.Feature {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.collection)
}

// Lookup returns the canonical feature at a coordinate key.
func (b *Bucket) Lookup(key string) (*features.Feature, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.byCoordinate[key]
	if !ok {
		return nil, false
	}
	return e.feature, true
}

// Fingerprints returns the number of distinct contents accepted so far.
func (b *Bucket) Fingerprints() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.fingerprints)
}

// Seen reports whether content with digest d was already accepted.
func (b *Bucket) Seen(d fingerprint.Digest) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.fingerprints[d]
	return ok
}
