package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EnvelopesRouted counts every envelope the router decided a fate
	// for, labeled by payload type and the decision it reached.
	EnvelopesRouted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "envelopes_total",
			Help:      "Total number of envelopes routed, by type and decision",
		},
		[]string{"type", "decision"}, // decision: delivered_local, forwarded_peer, not_found, queued
	)

	// RoutingErrors counts envelopes that could not be routed.
	RoutingErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "errors_total",
			Help:      "Total number of routing failures, by reason",
		},
		[]string{"reason"},
	)

	// SigningOperations counts envelope re-signing performed when a
	// message is forwarded or redelivered to a local user.
	SigningOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "signing_operations_total",
			Help:      "Total number of envelope signing operations, by outcome",
		},
		[]string{"outcome"}, // success, error
	)
)
