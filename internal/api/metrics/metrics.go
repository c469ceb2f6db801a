// Package metrics defines and registers all custom Prometheus metrics for the
// LMS API. It is the single source of truth for metric names, labels, and
// help strings. Registration happens at import time via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lms"

// ── Token metrics ─────────────────────────────────────────────────────────────

// TokensIssuedTotal counts token-endpoint outcomes.
// Labels:
//   - grant_type: "password" or "client_credentials"
//   - result: "issued", "pre_expired" (restricted application) or "denied"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of token-endpoint requests, by grant type and outcome.",
	},
	[]string{"grant_type", "result"},
)

// ── Grade metrics ─────────────────────────────────────────────────────────────

// GradeRequestsTotal counts grade-API requests.
// Labels:
//   - endpoint: "user_grade", "bulk_grades" or "policy"
//   - result: "ok", "not_found", "forbidden" or "error"
var GradeRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "grade_requests_total",
		Help:      "Total number of grade API requests, by endpoint and outcome.",
	},
	[]string{"endpoint", "result"},
)

// GradeCacheTotal counts computed-grade cache lookups.
// Label:
//   - result: "hit" or "miss"
var GradeCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "grade_cache_total",
		Help:      "Total number of grade cache lookups, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// GradeComputationDuration measures one end-to-end grade request.
// Label:
//   - endpoint: "user_grade" or "bulk_grades"
var GradeComputationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "grade_computation_duration_seconds",
		Help:      "Duration of grade computation from request to response.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"endpoint"},
)
