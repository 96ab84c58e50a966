// Package metrics holds the Prometheus collectors shared by the HTTP layer
// and the service layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests"},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"},
	)

	// Membership counts successful joins and leaves by operation.
	Membership = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "event_membership_changes_total", Help: "Successful event joins and leaves"},
		[]string{"op"},
	)
	// VersionConflicts counts optimistic-concurrency retries on events.
	VersionConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "event_version_conflicts_total", Help: "Event updates retried after a version conflict"},
	)
	// PartialUpdates counts two-document writes that stopped after the first write.
	PartialUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "relationship_partial_updates_total", Help: "User/event writes left half applied"},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, Membership, VersionConflicts, PartialUpdates)
}
