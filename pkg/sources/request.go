package sources

import (
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/regions"
)

// Request selects what a source fetches.
type Request struct {
	// Regions to walk. Empty means every region.
	Regions []regions.Region

	// Municipalities restricts the walk to these site-specific
	// municipality ids or names. It only applies to single-region
	// requests.
	Municipalities []string
}

// RegionList returns the requested regions, or every region when none
// were given.
func (r Request) RegionList() []regions.Region {
	if len(r.Regions) == 0 {
		return regions.List()
	}
	return r.Regions
}

// Validate checks that the request is consistent.
func (r Request) Validate() error {
	if len(r.Municipalities) > 0 && len(r.Regions) != 1 {
		return &errors.ValidationError{
			Field:   "municipalities",
			Value:   r.Municipalities,
			Message: "municipalities require exactly one region",
		}
	}
	return nil
}
