package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/atmap"
	"github.com/agentstation/atmap/internal/sources/site"
	"github.com/agentstation/atmap/pkg/logging"
)

// Mock provides a mock implementation of Interface for testing.
// If a function field is nil, the method returns a default value.
type Mock struct {
	AtmapWithOptionsFunc func(...atmap.Option) (atmap.Atmap, error)
	SiteConfigFunc       func() site.Config
	OutputDirFunc        func() string
	LoggerFunc           func() *zerolog.Logger
	OutputFormatFunc     func() string
	VersionFunc          func() string
}

var _ Interface = (*Mock)(nil)

// AtmapWithOptions returns an instance using the mock function or atmap.New.
func (m *Mock) AtmapWithOptions(opts ...atmap.Option) (atmap.Atmap, error) {
	if m.AtmapWithOptionsFunc != nil {
		return m.AtmapWithOptionsFunc(opts...)
	}
	return atmap.New(opts...)
}

// SiteConfig returns a site configuration using the mock function or the
// zero configuration.
func (m *Mock) SiteConfig() site.Config {
	if m.SiteConfigFunc != nil {
		return m.SiteConfigFunc()
	}
	return site.Config{}
}

// OutputDir returns a directory using the mock function or "".
func (m *Mock) OutputDir() string {
	if m.OutputDirFunc != nil {
		return m.OutputDirFunc()
	}
	return ""
}

// Logger returns a logger using the mock function or a nop logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	return logging.NewNopLogger()
}

// OutputFormat returns a format using the mock function or "json".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// Version returns a version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}
