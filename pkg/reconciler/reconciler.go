// Package reconciler merges a feature into the canonical feature already
// occupying the same coordinates. Conflicting values of the mergeable
// properties are kept side by side as sorted lists and tagged as issues;
// nothing is ever removed from the canonical feature.
package reconciler

import (
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/features"
)

// issueTags maps mergeable properties to the tag recorded in issues.
// Conflicting ATM ids are reported as "id".
var issueTags = map[string]string{
	features.PropMunicipality: "municipality",
	features.PropName:         "name",
	features.PropATMID:        "id",
	features.PropAddress:      "address",
	features.PropNeighborhood: "neighborhood",
}

// IssueTag returns the issue tag recorded when property conflicts.
func IssueTag(property string) string {
	if tag, ok := issueTags[property]; ok {
		return tag
	}
	return property
}

// Reconciler merges features sharing a coordinate key.
type Reconciler struct {
	strategy Strategy
}

// New creates a Reconciler with options.
func New(opts ...Option) (*Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Reconciler{strategy: options.strategy}, nil
}

var defaultReconciler = &Reconciler{strategy: NewFirstArrivalStrategy()}

// Default returns a Reconciler using the first-arrival strategy.
func Default() *Reconciler {
	return defaultReconciler
}

// Strategy returns the canonical selection strategy.
func (r *Reconciler) Strategy() Strategy {
	return r.strategy
}

// Merge folds incoming into canonical using the default reconciler.
func Merge(canonical, incoming *features.Feature) (*Result, error) {
	return defaultReconciler.Merge(canonical, incoming)
}

// Merge folds the mergeable properties of incoming into canonical, in the
// fixed order of features.Mergeable. Every mergeable property must exist on
// both features; if one is missing a *errors.MissingPropertyError is
// returned and canonical is left untouched.
func (r *Reconciler) Merge(canonical, incoming *features.Feature) (*Result, error) {
	if err := checkMergeable(canonical, incoming); err != nil {
		return nil, err
	}

	result := &Result{}
	for _, property := range features.Mergeable {
		current := canonical.Properties[property]
		other := incoming.Properties[property]
		if matches(current, other) {
			continue
		}

		result.Conflicts = append(result.Conflicts, Conflict{
			Property:  property,
			Tag:       IssueTag(property),
			Canonical: current.Text(),
			Incoming:  other.Text(),
		})

		canonical.Properties[property] = combine(current, other)
		if canonical.Properties.AddIssue(IssueTag(property)) {
			result.NewIssues = append(result.NewIssues, IssueTag(property))
		}
	}
	return result, nil
}

// Adopt replaces the non-mergeable properties of canonical with those of
// incoming. Mergeable values and recorded issues stay as they are.
func Adopt(canonical, incoming *features.Feature) {
	for name := range canonical.Properties {
		if name == features.PropIssues || features.IsMergeable(name) {
			continue
		}
		if !incoming.Properties.Has(name) {
			delete(canonical.Properties, name)
		}
	}
	for name, v := range incoming.Properties.Clone() {
		if name == features.PropIssues || features.IsMergeable(name) {
			continue
		}
		canonical.Properties[name] = v
	}
}

// Matches reports whether incoming's value for property is already
// represented on canonical: contained in the list once canonical holds a
// list, equal to the scalar otherwise.
func Matches(canonical, incoming *features.Feature, property string) (bool, error) {
	current, ok := canonical.Properties.Get(property)
	if !ok {
		return false, errors.NewMissingPropertyError(canonical.Describe(), property)
	}
	other, ok := incoming.Properties.Get(property)
	if !ok {
		return false, errors.NewMissingPropertyError(incoming.Describe(), property)
	}
	return matches(current, other), nil
}

// Diff lists the mergeable properties on which the two features disagree
// without modifying either of them.
func Diff(canonical, incoming *features.Feature) ([]Conflict, error) {
	if err := checkMergeable(canonical, incoming); err != nil {
		return nil, err
	}
	var conflicts []Conflict
	for _, property := range features.Mergeable {
		current := canonical.Properties[property]
		other := incoming.Properties[property]
		if !matches(current, other) {
			conflicts = append(conflicts, Conflict{
				Property:  property,
				Tag:       IssueTag(property),
				Canonical: current.Text(),
				Incoming:  other.Text(),
			})
		}
	}
	return conflicts, nil
}

func checkMergeable(canonical, incoming *features.Feature) error {
	for _, property := range features.Mergeable {
		if !canonical.Properties.Has(property) {
			return errors.NewMissingPropertyError(canonical.Describe(), property)
		}
		if !incoming.Properties.Has(property) {
			return errors.NewMissingPropertyError(incoming.Describe(), property)
		}
	}
	return nil
}

func matches(current, other features.Value) bool {
	for _, s := range other.Strings() {
		if !current.Contains(s) {
			return false
		}
	}
	return true
}

// combine promotes current to a list, adds the values of other it lacks and
// sorts the result.
func combine(current, other features.Value) features.Value {
	merged := current
	if !merged.IsList() {
		merged = features.List(current.Text())
	}
	for _, s := range other.Strings() {
		if !merged.Contains(s) {
			merged = merged.Append(s)
		}
	}
	return merged.Sorted()
}
