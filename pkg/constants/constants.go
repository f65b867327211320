// Package constants provides shared constants used throughout the atmap codebase.
// This includes timeouts, retry limits, file permissions, and output naming
// values that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to bank sites
	DefaultHTTPTimeout = 30 * time.Second

	// SourceFetchTimeout is the timeout for fetching every region from a single source
	SourceFetchTimeout = 30 * time.Minute
)

// Retry constants bound the exponential backoff applied to every request
const (
	// MaxRetries is the maximum number of retry attempts for a failed request
	MaxRetries = 5

	// RetryBackoff is the initial backoff duration for retries
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff is the maximum backoff duration for retries
	MaxRetryBackoff = 30 * time.Second

	// DefaultRequestDelay is the pause between consecutive requests to the same site
	DefaultRequestDelay = 1 * time.Second
)

// UserAgent is sent with every request to a bank site
const UserAgent = "atmap/1.0 (+https://github.com/agentstation/atmap)"

// Limit constants define various limits and capacities
const (
	// MaxConcurrentSources is the maximum number of sources fetched concurrently
	MaxConcurrentSources = 3

	// MaxConcurrentRequests is the maximum number of in-flight requests per source
	MaxConcurrentRequests = 4
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Output naming constants
const (
	// DefaultOutputDir is where exported collections are written
	DefaultOutputDir = "mx"

	// DefaultFilePrefix is used when a run mixes several banks
	DefaultFilePrefix = "atms"

	// RawExtension marks collections straight out of the registry
	RawExtension = ".raw.geojson"

	// FixedExtension marks collections after the fix pass
	FixedExtension = ".geojson"

	// GzipExtension is appended when compression is enabled
	GzipExtension = ".gz"
)
