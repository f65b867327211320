package atmap

import (
	"fmt"
	"time"

	"github.com/agentstation/atmap/pkg/sources"
)

// Result is the outcome of one run.
type Result struct {
	// RunID tags every log record of the run
	RunID string

	// Fetch holds per-source statistics
	Fetch *sources.Result

	// Collections lists the written files in write order
	Collections []CollectionSummary

	Duration time.Duration
}

// CollectionSummary describes one written collection.
type CollectionSummary struct {
	Region   string
	Category string
	Features int
	Path     string
}

// Features returns the number of features written.
func (r *Result) Features() int {
	n := 0
	for _, c := range r.Collections {
		n += c.Features
	}
	return n
}

// Paths returns the written file paths.
func (r *Result) Paths() []string {
	paths := make([]string, len(r.Collections))
	for i, c := range r.Collections {
		paths[i] = c.Path
	}
	return paths
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d features in %d collections (took %v)",
		r.Features(), len(r.Collections), r.Duration.Round(time.Millisecond))
}

// FixResult is the outcome of the fix pass.
type FixResult struct {
	Files []FixedFile
}

// FixedFile describes one fixed collection.
type FixedFile struct {
	Raw      string
	Fixed    string
	Features int
	Changed  int
}

// Changed returns the number of features modified over all files.
func (r *FixResult) Changed() int {
	n := 0
	for _, f := range r.Files {
		n += f.Changed
	}
	return n
}
