package transport

import (
	"net/url"

	"github.com/goccy/go-json"

	"github.com/agentstation/atmap/pkg/errors"
)

// DecodeJSON decodes a response body into target.
func DecodeJSON(data []byte, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// BuildURL appends params to base in the given order. Values are
// percent-encoded.
func BuildURL(base string, params ...Param) string {
	if len(params) == 0 {
		return base
	}
	out := base
	sep := "?"
	if u, err := url.Parse(base); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	for _, p := range params {
		out += sep + url.QueryEscape(p.Key) + "=" + url.QueryEscape(p.Value)
		sep = "&"
	}
	return out
}

// Param is one query parameter.
type Param struct {
	Key   string
	Value string
}
