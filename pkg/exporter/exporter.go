// Package exporter turns the buckets of a registry into feature collections
// in a reproducible order.
package exporter

import (
	"sort"

	"github.com/goccy/go-json"

	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/registry"
)

// Collection is the exported content of one bucket.
type Collection struct {
	Region   string
	Category string
	Features []*features.Feature
}

// MarshalJSON implements json.Marshaler. Only the GeoJSON feature collection
// is written; region and category are carried by the file location.
func (c Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(features.FeatureCollection{Features: c.Features})
}

// Len returns the number of features.
func (c Collection) Len() int {
	return len(c.Features)
}

// Flush returns one collection per bucket, ordered by region then category.
// Features are ordered by SortKey. The registry must not receive further
// features while its buckets are being flushed.
func Flush(reg *registry.Registry) []Collection {
	keys := reg.Buckets()
	out := make([]Collection, 0, len(keys))
	for _, key := range keys {
		b, ok := reg.Bucket(key.Region, key.Category)
		if !ok {
			continue
		}
		out = append(out, Collection{
			Region:   key.Region,
			Category: key.Category,
			Features: Sort(b.Features()),
		})
	}
	return out
}

// SortKey is the branch id, or "" when absent, followed by the coordinate
// key.
func SortKey(f *features.Feature) string {
	return f.Properties.Text(features.PropBranchID) + f.Key()
}

// Sort orders fs by SortKey in place and returns it. Equal keys keep their
// relative order.
func Sort(fs []*features.Feature) []*features.Feature {
	sort.SliceStable(fs, func(i, j int) bool {
		return SortKey(fs[i]) < SortKey(fs[j])
	})
	return fs
}
