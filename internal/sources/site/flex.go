package site

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
)

// FlexString decodes a JSON string or number as text. Some sites switch
// between the two for ids and coordinates.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	*s = FlexString(data)
	return nil
}

// String returns the trimmed text.
func (s FlexString) String() string {
	return strings.TrimSpace(string(s))
}
