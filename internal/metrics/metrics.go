// Package metrics exposes Prometheus counters for booking activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poolsched",
		Name:      "runs_total",
		Help:      "Orchestrator runs by final status.",
	}, []string{"status"})

	VenueAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poolsched",
		Name:      "venue_attempts_total",
		Help:      "Per-venue booking attempts by result.",
	}, []string{"venue", "result"})

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poolsched",
		Name:      "token_refreshes_total",
		Help:      "Session token refreshes by result.",
	}, []string{"result"})
)
