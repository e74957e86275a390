package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
)

func newKey(t *testing.T) *nodekey.KeyPair {
	t.Helper()
	k, err := nodekey.Generate()
	require.NoError(t, err)
	return k
}

func TestSignVerify_RoundTrip(t *testing.T) {
	key := newKey(t)
	env, err := wire.NewEnvelope(wire.Heartbeat, wire.NewRandomID(), wire.Broadcast, 1, wire.HeartbeatPayload{})
	require.NoError(t, err)

	require.NoError(t, Sign(env, key))
	assert.NotEmpty(t, env.Sig)
	assert.NoError(t, Verify(env, key))
}

func TestVerify_RejectsTamperedPayload(t *testing.T) {
	key := newKey(t)
	env, err := wire.NewEnvelope(wire.Heartbeat, wire.NewRandomID(), wire.Broadcast, 1, wire.HeartbeatPayload{})
	require.NoError(t, err)
	require.NoError(t, Sign(env, key))

	env.Ts = 999
	assert.Error(t, Verify(env, key))
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	key := newKey(t)
	other := newKey(t)
	env, err := wire.NewEnvelope(wire.Heartbeat, wire.NewRandomID(), wire.Broadcast, 1, wire.HeartbeatPayload{})
	require.NoError(t, err)
	require.NoError(t, Sign(env, key))

	assert.Error(t, Verify(env, other))
}
