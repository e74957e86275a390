package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/signing"
	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
)

func fixedNow() func() int64 { return func() int64 { return 42 } }

func newKey(t *testing.T) *nodekey.KeyPair {
	t.Helper()
	k, err := nodekey.Generate()
	require.NoError(t, err)
	return k
}

// recordingBroadcaster captures every envelope handed to Broadcast so
// tests can assert on what presence gossiped without a real federation.
type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []*wire.Envelope
}

func (b *recordingBroadcaster) Broadcast(ctx context.Context, env *wire.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, env)
	return nil
}

func TestHandleUserHello_RegistersUserAndGossips(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	bc := &recordingBroadcaster{}
	p := New(mesh, bc, nil)

	userKey := newKey(t)
	err := p.HandleUserHello(context.Background(), "user-1", userKey, wire.UserMetadata{}, fixedNow())
	require.NoError(t, err)

	u, ok := mesh.LocalUser("user-1")
	require.True(t, ok)
	assert.Equal(t, "user-1", u.UserID)

	home, ok := mesh.UserHome("user-1")
	require.True(t, ok)
	assert.Equal(t, meshstate.LocalServerID, home)

	require.Len(t, bc.sent, 1)
	assert.True(t, bc.sent[0].Type.Equal(wire.UserAdvertise))
}

func TestHandleHeartbeat_KnownAndUnknownUser(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	p := New(mesh, nil, nil)

	require.NoError(t, p.HandleUserHello(context.Background(), "user-1", newKey(t), wire.UserMetadata{}, fixedNow()))

	assert.True(t, p.HandleHeartbeat("user-1"))
	assert.False(t, p.HandleHeartbeat("ghost-user"))
}

func TestSweepOnce_EvictsStaleUserAndGossipsRemove(t *testing.T) {
	selfKey := newKey(t)
	selfServerID := wire.NewRandomID().String()
	mesh := meshstate.New(selfServerID, selfKey, 10, 10)
	bc := &recordingBroadcaster{}
	p := New(mesh, bc, nil)

	require.NoError(t, p.HandleUserHello(context.Background(), "user-1", newKey(t), wire.UserMetadata{}, fixedNow()))
	bc.sent = nil // discard the hello's USER_ADVERTISE

	p.sweepOnce(context.Background(), -1*time.Second, fixedNow()) // negative window: everyone is "stale"

	_, ok := mesh.LocalUser("user-1")
	assert.False(t, ok)
	_, ok = mesh.UserHome("user-1")
	assert.False(t, ok)

	require.Len(t, bc.sent, 1)
	assert.True(t, bc.sent[0].Type.Equal(wire.UserRemove))
}

func TestSweepOnce_FreshUserSurvives(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	bc := &recordingBroadcaster{}
	p := New(mesh, bc, nil)

	require.NoError(t, p.HandleUserHello(context.Background(), "user-1", newKey(t), wire.UserMetadata{}, fixedNow()))
	bc.sent = nil

	p.sweepOnce(context.Background(), time.Hour, fixedNow())

	_, ok := mesh.LocalUser("user-1")
	assert.True(t, ok)
	assert.Empty(t, bc.sent)
}

func TestHandleUserAdvertise_VerifiesSignatureAndUpdatesHome(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	p := New(mesh, nil, nil)

	peerKey := newKey(t)
	peerID := wire.NewRandomID()
	mesh.UpsertPeer(&meshstate.PeerLink{ServerID: peerID.String(), PubKey: peerKey})

	env, err := wire.NewEnvelope(wire.UserAdvertise, peerID, wire.Broadcast, 1, wire.UserAdvertisePayload{
		UserID:   "user-2",
		ServerID: peerID.String(),
	})
	require.NoError(t, err)
	require.NoError(t, signing.Sign(env, peerKey))

	require.NoError(t, p.HandleUserAdvertise(env))
	home, ok := mesh.UserHome("user-2")
	require.True(t, ok)
	assert.Equal(t, peerID.String(), home)
}

func TestHandleUserAdvertise_RejectsBadSignature(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	p := New(mesh, nil, nil)

	peerKey := newKey(t)
	otherKey := newKey(t)
	peerID := wire.NewRandomID()
	mesh.UpsertPeer(&meshstate.PeerLink{ServerID: peerID.String(), PubKey: peerKey})

	env, err := wire.NewEnvelope(wire.UserAdvertise, peerID, wire.Broadcast, 1, wire.UserAdvertisePayload{
		UserID:   "user-2",
		ServerID: peerID.String(),
	})
	require.NoError(t, err)
	require.NoError(t, signing.Sign(env, otherKey)) // signed by the wrong key

	err = p.HandleUserAdvertise(env)
	assert.Error(t, err)
	_, ok := mesh.UserHome("user-2")
	assert.False(t, ok)
}

func TestHandleUserRemove_HandOffSafe(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	p := New(mesh, nil, nil)

	peerAKey := newKey(t)
	peerAID := wire.NewRandomID()
	peerBID := wire.NewRandomID()
	mesh.UpsertPeer(&meshstate.PeerLink{ServerID: peerAID.String(), PubKey: peerAKey})

	// user already handed off to peer B before peer A's stale REMOVE arrives
	mesh.SetUserHome("user-3", peerBID.String())

	env, err := wire.NewEnvelope(wire.UserRemove, peerAID, wire.Broadcast, 1, wire.UserRemovePayload{
		UserID:   "user-3",
		ServerID: peerAID.String(),
	})
	require.NoError(t, err)
	require.NoError(t, signing.Sign(env, peerAKey))

	require.NoError(t, p.HandleUserRemove(env))

	home, ok := mesh.UserHome("user-3")
	require.True(t, ok)
	assert.Equal(t, peerBID.String(), home, "a stale REMOVE from the old home must not clobber the new home")
}

func TestRunSweep_StopsOnContextCancel(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	p := New(mesh, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.RunSweep(ctx, time.Millisecond, time.Hour, fixedNow())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweep did not return after context cancellation")
	}
}
