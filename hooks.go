package atmap

import (
	"sync"

	"github.com/agentstation/atmap/pkg/exporter"
	"github.com/agentstation/atmap/pkg/reconciler"
	"github.com/agentstation/atmap/pkg/registry"
)

// Hook function types for run events
type (
	// FeatureMergedHook is called when a feature is reconciled into the
	// feature already stored at its coordinate
	FeatureMergedHook func(region, category string, result *reconciler.Result)

	// CollectionWrittenHook is called after a collection is written to path
	CollectionWrittenHook func(c exporter.Collection, path string)
)

// hooks manages event callbacks. It is the registry observer of every run
// and forwards each outcome to next.
type hooks struct {
	mu                  sync.RWMutex
	onFeatureMerged     []FeatureMergedHook
	onCollectionWritten []CollectionWrittenHook

	next registry.Observer
}

var _ registry.Observer = (*hooks)(nil)

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnFeatureMerged registers a callback for merged features
func (h *hooks) OnFeatureMerged(fn FeatureMergedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFeatureMerged = append(h.onFeatureMerged, fn)
}

// OnCollectionWritten registers a callback for written collections
func (h *hooks) OnCollectionWritten(fn CollectionWrittenHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCollectionWritten = append(h.onCollectionWritten, fn)
}

func (h *hooks) FeatureAccepted(region, category string) {
	if h.next != nil {
		h.next.FeatureAccepted(region, category)
	}
}

func (h *hooks) FeatureDuplicate(region, category string) {
	if h.next != nil {
		h.next.FeatureDuplicate(region, category)
	}
}

func (h *hooks) FeatureMerged(region, category string, result *reconciler.Result) {
	if h.next != nil {
		h.next.FeatureMerged(region, category, result)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onFeatureMerged {
		hook(region, category, result)
	}
}

func (h *hooks) FeatureRejected(region, category string, err error) {
	if h.next != nil {
		h.next.FeatureRejected(region, category, err)
	}
}

// triggerCollectionWritten calls every written hook
func (h *hooks) triggerCollectionWritten(c exporter.Collection, path string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onCollectionWritten {
		hook(c, path)
	}
}
