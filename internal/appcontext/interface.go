// Package appcontext provides the shared application context interface
// used by all commands, so command packages depend on an interface rather
// than on the concrete App.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/atmap"
	"github.com/agentstation/atmap/internal/sources/site"
)

// Interface defines the application context commands need. The App struct
// from cmd/atmap/app implements it.
type Interface interface {
	// AtmapWithOptions creates an atmap instance from the configuration
	// plus opts. Later options win.
	AtmapWithOptions(opts ...atmap.Option) (atmap.Atmap, error)

	// SiteConfig returns the configuration shared by every bank source.
	SiteConfig() site.Config

	// OutputDir returns the directory collections are written to.
	OutputDir() string

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string
}
