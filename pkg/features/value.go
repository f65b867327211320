package features

import (
	"bytes"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	// KindNull is an explicit JSON null (e.g. a phone the site left blank).
	KindNull Kind = iota
	// KindString is a single string value.
	KindString
	// KindList is an ordered list of strings.
	KindList
	// KindBool is a boolean flag such as isVerified.
	KindBool
	// KindRaw is any other JSON value, kept verbatim.
	KindRaw
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindBool:
		return "bool"
	default:
		return "raw"
	}
}

// Value is one property value. Mergeable properties start as KindString and
// are promoted to KindList when sources disagree; a list never goes back to
// a scalar.
type Value struct {
	kind Kind
	str  string
	list []string
	flag bool
	raw  []byte
}

// String returns a scalar string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// List returns a list value holding a copy of values in the given order.
func List(values ...string) Value {
	return Value{kind: KindList, list: slices.Clone(values)}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// Null returns an explicit null value.
func Null() Value {
	return Value{kind: KindNull}
}

// Raw returns a value that re-encodes msg verbatim.
func Raw(msg []byte) Value {
	return Value{kind: KindRaw, raw: bytes.Clone(msg)}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsList reports whether v has been promoted to a list.
func (v Value) IsList() bool {
	return v.kind == KindList
}

// Text renders v as a single string. Lists are joined with ", ".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindList:
		return strings.Join(v.list, ", ")
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindRaw:
		return string(v.raw)
	default:
		return ""
	}
}

// Strings returns the elements of a list, or the scalar text as a single
// element for any other kind.
func (v Value) Strings() []string {
	if v.kind == KindList {
		return slices.Clone(v.list)
	}
	return []string{v.Text()}
}

// First returns the first element of a list, or the scalar text.
func (v Value) First() string {
	if v.kind == KindList {
		if len(v.list) == 0 {
			return ""
		}
		return v.list[0]
	}
	return v.Text()
}

// Contains reports whether s is one of the list elements, or equals the
// scalar text for any other kind.
func (v Value) Contains(s string) bool {
	if v.kind == KindList {
		return slices.Contains(v.list, s)
	}
	return v.Text() == s
}

// Append returns a list holding v's elements followed by s. Scalars are
// promoted to a single-element list first.
func (v Value) Append(s string) Value {
	out := v.Strings()
	return Value{kind: KindList, list: append(out, s)}
}

// Sorted returns v with list elements in ascending order.
func (v Value) Sorted() Value {
	if v.kind != KindList {
		return v
	}
	out := slices.Clone(v.list)
	slices.Sort(out)
	return Value{kind: KindList, list: out}
}

// Len returns the number of list elements, or 1 for scalars.
func (v Value) Len() int {
	if v.kind == KindList {
		return len(v.list)
	}
	return 1
}

// Equal reports whether v and o have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindList:
		return slices.Equal(v.list, o.list)
	case KindBool:
		return v.flag == o.flag
	case KindRaw:
		return bytes.Equal(v.raw, o.raw)
	default:
		return true
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindBool:
		return json.Marshal(v.flag)
	case KindRaw:
		if len(v.raw) == 0 {
			return []byte("null"), nil
		}
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Numbers, objects and any other
// value that is not a string, list of strings or boolean are kept raw, so
// they marshal back unchanged.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Null()
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case data[0] == '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			*v = Raw(data)
			return nil
		}
		*v = List(list...)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*v = Bool(data[0] == 't')
	default:
		*v = Raw(data)
	}
	return nil
}
