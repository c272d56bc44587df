// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

// Package metrics provides Prometheus metrics for the accounts service.
// Metrics are registered with the default registry via promauto and served
// on /metrics to bearers of the metrics token.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// Operation labels.
const (
	OpRequest   = "request"
	OpValidate  = "validate"
	OpOwner     = "owner"
	OpComplete  = "complete"
	OpTemporary = "temporary"
)

// Outcome labels. Recovery requests that reach the account lookup are all
// recorded as accepted, whatever the account state.
const (
	OutcomeAccepted     = "accepted"
	OutcomeSuccess      = "success"
	OutcomeUnauthorized = "unauthorized"
	OutcomeBadRequest   = "bad_request"
	OutcomeError        = "error"
)

var (
	// RecoveryOperationsTotal counts recovery operations by operation and outcome.
	RecoveryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recovery",
			Name:      "operations_total",
			Help:      "Total number of password recovery operations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	// EmailsSentTotal counts outbound emails by template and driver status.
	// status: accepted | rejected | failed
	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "sent_total",
			Help:      "Total number of outbound emails by template and status.",
		},
		[]string{"template", "status"},
	)

	// IdentityRequestDurationSeconds tracks admin API latency by call.
	IdentityRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "request_duration_seconds",
			Help:      "Duration of identity provider admin API calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"call", "status"},
	)

	// IdentityTokenRefreshesTotal counts admin token fetches by outcome.
	IdentityTokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "token_refreshes_total",
			Help:      "Total number of identity provider admin token refreshes by outcome.",
		},
		[]string{"outcome"},
	)
)

// RecordRecovery increments the recovery counter.
func RecordRecovery(operation, outcome string) {
	RecoveryOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordEmail increments the email counter.
func RecordEmail(template, status string) {
	EmailsSentTotal.WithLabelValues(template, status).Inc()
}

// ObserveIdentityCall records the latency of one admin API call.
func ObserveIdentityCall(call, status string, started time.Time) {
	IdentityRequestDurationSeconds.WithLabelValues(call, status).Observe(time.Since(started).Seconds())
}

// RecordTokenRefresh increments the token refresh counter.
func RecordTokenRefresh(outcome string) {
	IdentityTokenRefreshesTotal.WithLabelValues(outcome).Inc()
}
