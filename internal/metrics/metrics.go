// SPDX-License-Identifier: MIT

// Package metrics provides the Prometheus metrics of the service. Labels are
// kept low-cardinality: no session or request IDs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SolveDuration observes wall-clock solve time per scalarization method.
	SolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "desdeo_solve_duration_seconds",
		Help:    "Wall-clock duration of scalarized solves, by scalarization method.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"method"})

	// SolvesTotal counts finished solves by solver kind and outcome.
	SolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "desdeo_solves_total",
		Help: "Total number of finished solves, by solver and success.",
	}, []string{"solver", "success"})

	// SessionsActive tracks the number of interactive sessions in the archive.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "desdeo_sessions",
		Help: "Number of interactive solving sessions in the archive.",
	})

	// HTTPRequestsTotal counts HTTP requests by route, method and status class.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "desdeo_http_requests_total",
		Help: "Total number of HTTP requests, by route, method and status class.",
	}, []string{"route", "method", "status"})

	// HTTPRequestDuration observes request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "desdeo_http_request_duration_seconds",
		Help:    "HTTP request latency, by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// ObserveSolve records one finished solve.
func ObserveSolve(method, solver string, success bool, d time.Duration) {
	SolveDuration.WithLabelValues(method).Observe(d.Seconds())
	outcome := "false"
	if success {
		outcome = "true"
	}
	SolvesTotal.WithLabelValues(solver, outcome).Inc()
}
