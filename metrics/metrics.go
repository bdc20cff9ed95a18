// Package metrics registers the rescue service counters on the default
// Prometheus registry. main exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions counts lifecycle intents by outcome.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_rescue_transitions_total",
		Help: "Lifecycle intents by intent and result",
	}, []string{"intent", "result"})

	// Notifications counts appended notifications by type.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_rescue_notifications_total",
		Help: "Notifications appended by type",
	}, []string{"type"})

	// NotificationFailures counts fan-out writes that were dropped.
	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "food_rescue_notification_failures_total",
		Help: "Notification batches that failed to persist",
	})

	// ProximityMatches counts volunteers notified about a new posting.
	ProximityMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "food_rescue_proximity_matches_total",
		Help: "Volunteers matched within radius of a new posting",
	})

	// ClassifierFallbacks counts classifier calls that degraded to the fallback verdict.
	ClassifierFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_rescue_classifier_fallbacks_total",
		Help: "Classifier calls answered with the fallback verdict",
	}, []string{"check"})

	// Ratings counts accepted ratings.
	Ratings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "food_rescue_ratings_total",
		Help: "Ratings folded into volunteer reputation",
	})
)

// Result labels.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultConflict = "conflict"
	ResultError    = "error"
)
