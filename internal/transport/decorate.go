package transport

import (
	"net/http"
)

// Decorator adjusts outgoing requests.
type Decorator interface {
	Apply(req *http.Request)
}

// HeaderDecorator sets one header.
type HeaderDecorator struct {
	Header string
	Value  string
}

// Apply implements the Decorator interface for HeaderDecorator.
func (d HeaderDecorator) Apply(req *http.Request) {
	req.Header.Set(d.Header, d.Value)
}

// Referer returns a decorator setting the Referer header, which some sites
// check before answering their AJAX endpoints.
func Referer(url string) Decorator {
	return HeaderDecorator{Header: "Referer", Value: url}
}

// QueryDecorator adds a fixed query parameter.
type QueryDecorator struct {
	Param string
	Value string
}

// Apply implements the Decorator interface for QueryDecorator.
func (d QueryDecorator) Apply(req *http.Request) {
	if req.URL == nil {
		return
	}
	q := req.URL.Query()
	q.Set(d.Param, d.Value)
	req.URL.RawQuery = q.Encode()
}
