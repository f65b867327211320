// Package metrics records registry and source activity as prometheus
// metrics. A run can dump them to a node_exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/reconciler"
	"github.com/agentstation/atmap/pkg/sources"
)

// Metrics provides observability for a run. It implements
// registry.Observer and sources.FetchObserver. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Registry outcomes by region and category
	Accepted  *prometheus.CounterVec
	Duplicate *prometheus.CounterVec
	Merged    *prometheus.CounterVec
	Rejected  *prometheus.CounterVec

	// Mergeable properties that disagreed at a shared coordinate
	Conflicts *prometheus.CounterVec

	// Source fetch latency and failures by source
	FetchDuration *prometheus.HistogramVec
	FetchErrors   *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	bucket := []string{"region", "category"}

	return &Metrics{
		registry: reg,

		Accepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atmap_features_accepted_total",
			Help: "Features stored at a new coordinate",
		}, bucket),

		Duplicate: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atmap_features_duplicate_total",
			Help: "Features dropped because an identical feature was already seen",
		}, bucket),

		Merged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atmap_features_merged_total",
			Help: "Features reconciled into an existing feature at the same coordinate",
		}, bucket),

		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atmap_features_rejected_total",
			Help: "Features refused for missing baseline properties",
		}, bucket),

		Conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atmap_property_conflicts_total",
			Help: "Property disagreements found while merging, by property",
		}, []string{"property"}),

		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atmap_source_fetch_duration_seconds",
			Help:    "Duration of a full source fetch",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		}, []string{"source"}),

		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atmap_source_fetch_errors_total",
			Help: "Source fetches that ended with an error",
		}, []string{"source"}),
	}
}

// Registry returns the prometheus registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// FeatureAccepted implements registry.Observer.
func (m *Metrics) FeatureAccepted(region, category string) {
	if m != nil {
		m.Accepted.WithLabelValues(region, category).Inc()
	}
}

// FeatureDuplicate implements registry.Observer.
func (m *Metrics) FeatureDuplicate(region, category string) {
	if m != nil {
		m.Duplicate.WithLabelValues(region, category).Inc()
	}
}

// FeatureMerged implements registry.Observer.
func (m *Metrics) FeatureMerged(region, category string, result *reconciler.Result) {
	if m == nil {
		return
	}
	m.Merged.WithLabelValues(region, category).Inc()
	if result == nil {
		return
	}
	for _, c := range result.Conflicts {
		m.Conflicts.WithLabelValues(c.Property).Inc()
	}
}

// FeatureRejected implements registry.Observer.
func (m *Metrics) FeatureRejected(region, category string, _ error) {
	if m != nil {
		m.Rejected.WithLabelValues(region, category).Inc()
	}
}

// ObserveFetch implements sources.FetchObserver.
func (m *Metrics) ObserveFetch(id sources.ID, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(id.String()).Observe(d.Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(id.String()).Inc()
	}
}

// WriteTextfile writes every metric to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
