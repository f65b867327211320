package registry

import (
	"github.com/agentstation/atmap/pkg/reconciler"
)

// Observer is notified of every Accept outcome. Implementations must be safe
// for concurrent use. Notifications are delivered after the bucket lock is
// released, so an observer may call Accept itself.
type Observer interface {
	FeatureAccepted(region, category string)
	FeatureDuplicate(region, category string)
	FeatureMerged(region, category string, result *reconciler.Result)
	FeatureRejected(region, category string, err error)
}

type nopObserver struct{}

func (nopObserver) FeatureAccepted(string, string) {}
func (nopObserver) FeatureDuplicate(string, string) {}
func (nopObserver) FeatureMerged(string, string, *reconciler.Result) {}
func (nopObserver) FeatureRejected(string, string, error) {}
