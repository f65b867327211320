package features

import (
	"bytes"
	"slices"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Property names shared by every source.
const (
	PropBank         = "bank"
	PropType         = "type"
	PropState        = "state"
	PropMunicipality = "municipality"
	PropName         = "name"
	PropAddress      = "address"
	PropNeighborhood = "neighborhood"
	PropZipCode      = "zipCode"
	PropPhone        = "phone"
	PropBranchID     = "branchId"
	PropATMID        = "atmId"
	PropOpeningHours = "openingHours"
	PropIsVerified   = "isVerified"
	PropIssues       = "issues"
)

// Baseline lists the properties every feature must carry before it may
// enter the registry.
var Baseline = []string{
	PropBank,
	PropType,
	PropState,
	PropMunicipality,
	PropName,
	PropAddress,
	PropNeighborhood,
	PropZipCode,
	PropPhone,
	PropATMID,
}

// Mergeable lists, in merge order, the properties that turn into a list of
// alternatives when sources disagree.
var Mergeable = []string{
	PropMunicipality,
	PropName,
	PropATMID,
	PropAddress,
	PropNeighborhood,
}

// order fixes the serialized position of known properties; unknown keys
// follow in ascending order.
var order = map[string]int{
	PropBank:         0,
	PropType:         1,
	PropState:        2,
	PropMunicipality: 3,
	PropName:         4,
	PropAddress:      5,
	PropNeighborhood: 6,
	PropZipCode:      7,
	PropPhone:        8,
	PropBranchID:     9,
	PropATMID:        10,
	PropOpeningHours: 11,
	PropIsVerified:   12,
	PropIssues:       13,
}

// issueOrder ranks conflict tags by the merge order of their property;
// unknown tags follow in ascending order.
var issueOrder = map[string]int{
	PropMunicipality: 0,
	PropName:         1,
	"id":             2,
	PropAddress:      3,
	PropNeighborhood: 4,
}

func compareIssues(a, b string) int {
	ra, oka := issueOrder[a]
	rb, okb := issueOrder[b]
	switch {
	case oka && okb:
		return ra - rb
	case oka:
		return -1
	case okb:
		return 1
	}
	return strings.Compare(a, b)
}

// IsMergeable reports whether name is one of the mergeable properties.
func IsMergeable(name string) bool {
	return slices.Contains(Mergeable, name)
}

// Properties maps property names to values. It always serializes in the
// same key order regardless of how it was built.
type Properties map[string]Value

// Get returns the value stored under name.
func (p Properties) Get(name string) (Value, bool) {
	v, ok := p[name]
	return v, ok
}

// Has reports whether name is present.
func (p Properties) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Set stores v under name.
func (p Properties) Set(name string, v Value) {
	p[name] = v
}

// SetString stores a scalar string under name.
func (p Properties) SetString(name, s string) {
	p[name] = String(s)
}

// Text returns the text of name, or "" when absent.
func (p Properties) Text(name string) string {
	return p[name].Text()
}

// Keys returns the property names in serialization order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, iKnown := order[keys[i]]
		oj, jKnown := order[keys[j]]
		switch {
		case iKnown && jKnown:
			return oi < oj
		case iKnown != jKnown:
			return iKnown
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// Issues returns the conflict tags recorded so far, in merge order.
func (p Properties) Issues() []string {
	v, ok := p[PropIssues]
	if !ok {
		return nil
	}
	return v.Strings()
}

// AddIssue records tag once, keeping tags in merge order. It reports
// whether the tag was new.
func (p Properties) AddIssue(tag string) bool {
	v, ok := p[PropIssues]
	if !ok || !v.IsList() {
		p[PropIssues] = List(tag)
		return true
	}
	if v.Contains(tag) {
		return false
	}
	tags := v.Append(tag).Strings()
	slices.SortStableFunc(tags, compareIssues)
	p[PropIssues] = List(tags...)
	return true
}

// Clone returns a deep copy of p.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		switch v.kind {
		case KindList:
			out[k] = List(v.list...)
		case KindRaw:
			out[k] = Raw(v.raw)
		default:
			out[k] = v
		}
	}
	return out
}

// MarshalJSON implements json.Marshaler, writing keys in serialization order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := p[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Properties, len(raw))
	for k, msg := range raw {
		var v Value
		if err := v.UnmarshalJSON(msg); err != nil {
			return err
		}
		out[k] = v
	}
	*p = out
	return nil
}
