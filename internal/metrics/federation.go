package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bootstrap FSM state values exposed on the BootstrapState gauge, in the
// same order the FSM transitions through them.
const (
	BootstrapStateUninit   = 0
	BootstrapStateDialing  = 1
	BootstrapStateReady    = 2
	BootstrapStateIsolated = 3
)

var (
	// BootstrapState reports the node's current federation FSM state.
	BootstrapState = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "federation",
			Name:      "bootstrap_state",
			Help:      "Current bootstrap FSM state (0=uninit, 1=dialing, 2=ready, 3=isolated)",
		},
	)

	// HandshakeDuration tracks how long a HELLO_JOIN -> WELCOME round
	// trip took, across successful bootstraps.
	HandshakeDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "federation",
			Name:      "handshake_duration_seconds",
			Help:      "Bootstrap handshake round-trip duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// AnnouncesSent counts outbound ANNOUNCE broadcasts to known peers.
	AnnouncesSent = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "federation",
			Name:      "announces_sent_total",
			Help:      "Total number of ANNOUNCE messages sent, by outcome",
		},
		[]string{"outcome"}, // success, error
	)

	// PeersConnected reports the current number of federated peer links.
	PeersConnected = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "federation",
			Name:      "peers_connected",
			Help:      "Current number of connected peer nodes",
		},
	)
)
