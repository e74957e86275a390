package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LocalUsers reports the current number of directly connected users.
	LocalUsers = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "local_users",
			Help:      "Current number of locally connected users",
		},
	)

	// SweepRemoved counts users evicted by the staleness sweep, a proxy
	// for how often clients are failing to heartbeat in time.
	SweepRemoved = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "sweep_removed_total",
			Help:      "Total number of local users removed by the staleness sweep",
		},
	)

	// HeartbeatsReceived counts heartbeat requests handled.
	HeartbeatsReceived = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "heartbeats_total",
			Help:      "Total number of heartbeats received from local users",
		},
	)
)
