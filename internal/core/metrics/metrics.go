package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics for the tracking engine.
type Metrics struct {
	// LocationUpdates counts accepted position reports.
	LocationUpdates prometheus.Counter
	// StaleUpdatesRejected counts out-of-order position reports dropped.
	StaleUpdatesRejected prometheus.Counter
	// GeofenceEvents counts emitted geofence events by type (ENTER/EXIT/DWELL).
	GeofenceEvents *prometheus.CounterVec
	// StateTransitions counts shipment status transitions by target status.
	StateTransitions *prometheus.CounterVec
	// EventsPublished counts domain events handed to the event stream by topic.
	EventsPublished *prometheus.CounterVec
	// PublishFailures counts failed event publications by topic.
	PublishFailures *prometheus.CounterVec
	// SagaOutcomes counts completed cancellation sagas by outcome.
	SagaOutcomes *prometheus.CounterVec
	// UpdateDuration measures the location update pipeline latency.
	UpdateDuration prometheus.Histogram
}

// New creates the metrics set registered against the default registerer.
func New(namespace string) *Metrics {
	return NewWith(namespace, prometheus.DefaultRegisterer)
}

// NewWith creates the metrics set against a specific registerer. Tests pass
// a private registry so repeated construction does not collide.
func NewWith(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LocationUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_updates_total",
			Help:      "The total number of accepted position reports",
		}),
		StaleUpdatesRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_updates_rejected_total",
			Help:      "The total number of out-of-order position reports rejected",
		}),
		GeofenceEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geofence_events_total",
			Help:      "The total number of geofence events emitted",
		}, []string{"type"}),
		StateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "The total number of shipment status transitions",
		}, []string{"to"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "The total number of domain events published",
		}, []string{"topic"}),
		PublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "The total number of failed event publications",
		}, []string{"topic"}),
		SagaOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_outcomes_total",
			Help:      "The total number of cancellation sagas by outcome",
		}, []string{"outcome"}),
		UpdateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "location_update_duration_seconds",
			Help:      "Time taken to process a position report",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
