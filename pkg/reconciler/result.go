package reconciler

import (
	"fmt"
	"strings"
)

// Conflict describes one mergeable property on which two features disagree.
type Conflict struct {
	Property  string
	Tag       string
	Canonical string
	Incoming  string
}

// String implements fmt.Stringer.
func (c Conflict) String() string {
	return fmt.Sprintf("%s doesn't match: %q, %q", c.Property, c.Incoming, c.Canonical)
}

// Result reports what a merge changed.
type Result struct {
	// Conflicts lists the properties whose values differed, in merge order.
	Conflicts []Conflict

	// NewIssues lists the issue tags added to the canonical feature by
	// this merge; tags already present are not repeated.
	NewIssues []string

	// Adopted is set when the canonical feature took over the incoming
	// feature's non-mergeable properties.
	Adopted bool
}

// HasConflicts reports whether any property differed.
func (r *Result) HasConflicts() bool {
	return r != nil && len(r.Conflicts) > 0
}

// Properties returns the names of the conflicting properties.
func (r *Result) Properties() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.Conflicts))
	for i, c := range r.Conflicts {
		names[i] = c.Property
	}
	return names
}

// Summary returns a one-line description of the merge.
func (r *Result) Summary() string {
	if !r.HasConflicts() {
		return "no conflicting properties"
	}
	return "conflicting properties: " + strings.Join(r.Properties(), ", ")
}
