package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_Registered(t *testing.T) {
	require.NotNil(t, EnvelopesRouted)
	require.NotNil(t, RoutingErrors)
	require.NotNil(t, BootstrapState)
	require.NotNil(t, HandshakeDuration)
	require.NotNil(t, PeersConnected)
	require.NotNil(t, LocalUsers)
	require.NotNil(t, SweepRemoved)
	require.NotNil(t, CryptoOperations)
}

func TestPrometheusMetrics_Increment(t *testing.T) {
	EnvelopesRouted.WithLabelValues("DIRECT_MESSAGE", "delivered_local").Inc()
	assert.Equal(t, 1, testutil.CollectAndCount(EnvelopesRouted, "veilnet_routing_envelopes_total"))

	BootstrapState.Set(BootstrapStateReady)
	HandshakeDuration.Observe(0.25)
	PeersConnected.Set(3)
	LocalUsers.Set(5)
	SweepRemoved.Inc()
	CryptoOperations.WithLabelValues("sign").Inc()
}

func TestCollector_SnapshotReflectsRecordedActivity(t *testing.T) {
	c := NewCollector()

	c.RecordRoute(false)
	c.RecordRoute(true)
	c.RecordBootstrap(true, 10*time.Millisecond)
	c.RecordDelivery(5 * time.Millisecond)
	c.RecordSweepRemoval(2)

	snap := c.GetSnapshot()
	assert.Equal(t, int64(2), snap.EnvelopesRouted)
	assert.Equal(t, int64(1), snap.RoutingErrors)
	assert.Equal(t, int64(1), snap.BootstrapAttempts)
	assert.Equal(t, int64(1), snap.BootstrapSuccesses)
	assert.Equal(t, int64(2), snap.SweepRemovedCount)
	assert.Greater(t, snap.AvgHandshakeTime, float64(0))
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector()
	c.RecordRoute(true)
	c.Reset()

	snap := c.GetSnapshot()
	assert.Equal(t, int64(0), snap.EnvelopesRouted)
	assert.Equal(t, int64(0), snap.RoutingErrors)
}

func TestGetGlobalCollector_ReturnsSharedInstance(t *testing.T) {
	a := GetGlobalCollector()
	b := GetGlobalCollector()
	assert.Same(t, a, b)
}
