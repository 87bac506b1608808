// Package metrics provides Prometheus metrics for the reconciliation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PreviewsTotal tracks match preview runs by organization
	PreviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cheflife",
			Subsystem: "reconcile",
			Name:      "previews_total",
			Help:      "Total number of match preview runs",
		},
		[]string{"organization_id"},
	)

	// PreviewDuration tracks match preview duration in seconds
	PreviewDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cheflife",
			Subsystem: "reconcile",
			Name:      "preview_duration_seconds",
			Help:      "Duration of match preview runs in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"organization_id"},
	)

	// MatchCandidatesTotal tracks produced candidates by match type
	MatchCandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cheflife",
			Subsystem: "reconcile",
			Name:      "match_candidates_total",
			Help:      "Total number of match candidates produced by match type",
		},
		[]string{"organization_id", "match_type"},
	)

	// LinksSavedTotal tracks persisted links by status
	LinksSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cheflife",
			Subsystem: "reconcile",
			Name:      "links_saved_total",
			Help:      "Total number of link persistence attempts by status",
		},
		[]string{"organization_id", "status"},
	)

	// WageFetchesTotal tracks lazy wage fetches by outcome
	WageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cheflife",
			Subsystem: "wages",
			Name:      "fetches_total",
			Help:      "Total number of wage fetches by outcome",
		},
		[]string{"outcome"},
	)

	// ProviderRequestsTotal tracks outbound provider API requests
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cheflife",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Total number of outbound provider API requests",
		},
		[]string{"operation", "status_code"},
	)

	// ProviderRequestDuration tracks outbound provider API request duration
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cheflife",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound provider API requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
)
