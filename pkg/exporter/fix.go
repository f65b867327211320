package exporter

import (
	"github.com/agentstation/atmap/pkg/features"
)

// collapsed lists the properties that Fix reduces to a single value.
var collapsed = []string{
	features.PropName,
	features.PropMunicipality,
	features.PropNeighborhood,
	features.PropAddress,
}

// Fix prepares a collection for publishing: list-valued name, municipality,
// neighborhood and address properties are replaced by their first
// non-empty alternative, and every feature's type is set to featureType when it is
// not empty. Issues and ATM id lists are kept.
func Fix(fs []*features.Feature, featureType string) int {
	changed := 0
	for _, f := range fs {
		modified := false
		for _, name := range collapsed {
			v, ok := f.Properties.Get(name)
			if !ok || !v.IsList() {
				continue
			}
			f.Properties.SetString(name, firstNonEmpty(v))
			modified = true
		}
		if featureType != "" && f.Properties.Text(features.PropType) != featureType {
			f.Properties.SetString(features.PropType, featureType)
			modified = true
		}
		if modified {
			changed++
		}
	}
	return changed
}

// firstNonEmpty returns the first non-blank alternative of v, or "" when
// every alternative is blank.
func firstNonEmpty(v features.Value) string {
	for _, s := range v.Strings() {
		if s != "" {
			return s
		}
	}
	return ""
}
