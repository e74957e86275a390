package federation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/nodeconfig"
	"github.com/veilnet/veilnet/internal/signing"
	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
)

func fixedNow() func() int64 { return func() int64 { return 1000 } }

func newKey(t *testing.T) *nodekey.KeyPair {
	t.Helper()
	k, err := nodekey.Generate()
	require.NoError(t, err)
	return k
}

// fakeConn is an in-memory PeerConn: Send appends to an outbox and Recv
// returns from a pre-seeded inbox, so tests never touch real sockets.
type fakeConn struct {
	mu     sync.Mutex
	sent   []*wire.Envelope
	inbox  []*wire.Envelope
	closed bool
}

func (c *fakeConn) Send(env *wire.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, env)
	return nil
}

func (c *fakeConn) Recv(ctx context.Context) (*wire.Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbox) == 0 {
		return nil, errors.New("no more queued messages")
	}
	env := c.inbox[0]
	c.inbox = c.inbox[1:]
	return env, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// fakeDialer dials to a fixed set of canned connections keyed by
// host:port, or fails for unknown addresses.
type fakeDialer struct {
	conns map[string]*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, host string, port int) (PeerConn, error) {
	key := host
	if c, ok := d.conns[key]; ok {
		return c, nil
	}
	return nil, errors.New("connection refused")
}

func newWelcomeEnvelope(t *testing.T, introducerKey *nodekey.KeyPair, introducerID wire.Identifier, assignedID string) *wire.Envelope {
	t.Helper()
	env, err := wire.NewEnvelope(wire.ServerWelcome, introducerID, wire.Broadcast, 1, wire.WelcomePayload{
		AssignedServerID: assignedID,
		Servers:          []wire.ServerInfo{},
		Clients:          []wire.ClientInfo{{UserID: "u1", ServerID: introducerID.String()}},
	})
	require.NoError(t, err)
	require.NoError(t, signing.Sign(env, introducerKey))
	return env
}

func TestBootstrap_NoConfiguredPeers_GoesReadyImmediately(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	f := New(mesh, "127.0.0.1", 9000, nil, &fakeDialer{}, nil)

	require.NoError(t, f.Bootstrap(context.Background(), fixedNow()))
	assert.Equal(t, StateReady, f.State())
	assert.True(t, f.Bootstrapped())
}

func TestBootstrap_SuccessfulIntroducer_SetsReadyAndPopulatesMesh(t *testing.T) {
	selfKey := newKey(t)
	selfID := wire.NewRandomID()
	mesh := meshstate.New(selfID.String(), selfKey, 10, 10)

	introducerKey := newKey(t)
	introducerID := wire.NewRandomID()
	welcome := newWelcomeEnvelope(t, introducerKey, introducerID, selfID.String())
	conn := &fakeConn{inbox: []*wire.Envelope{welcome}}
	dialer := &fakeDialer{conns: map[string]*fakeConn{"seed.example.com": conn}}

	peers := []nodeconfig.BootstrapPeer{{Host: "seed.example.com", Port: 8080}}
	f := New(mesh, "127.0.0.1", 9000, peers, dialer, nil)

	err := f.Bootstrap(context.Background(), fixedNow())
	require.NoError(t, err)
	assert.Equal(t, StateReady, f.State())

	_, ok := mesh.Peer(introducerID.String())
	assert.True(t, ok)
	home, ok := mesh.UserHome("u1")
	require.True(t, ok)
	assert.Equal(t, introducerID.String(), home)

	require.Len(t, conn.sent, 2)
	assert.True(t, conn.sent[0].Type.Equal(wire.ServerHelloJoin))
	assert.True(t, conn.sent[1].Type.Equal(wire.ServerAnnounce))
}

func TestBootstrap_AllIntroducersUnreachable_GoesIsolated(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)

	peers := []nodeconfig.BootstrapPeer{{Host: "unreachable.example.com", Port: 8080}}
	f := New(mesh, "127.0.0.1", 9000, peers, &fakeDialer{}, nil)

	err := f.Bootstrap(context.Background(), fixedNow())
	assert.ErrorIs(t, err, ErrIsolated)
	assert.Equal(t, StateIsolated, f.State())
}

func TestAnnounce_SkipsSelfAndSendsToKnownPeers(t *testing.T) {
	selfKey := newKey(t)
	selfID := wire.NewRandomID()
	mesh := meshstate.New(selfID.String(), selfKey, 10, 10)

	peerConn := &fakeConn{}
	dialer := &fakeDialer{conns: map[string]*fakeConn{"peer-host": peerConn}}
	f := New(mesh, "127.0.0.1", 9000, nil, dialer, nil)

	mesh.UpsertPeer(&meshstate.PeerLink{ServerID: selfID.String(), Host: "self-host"})
	mesh.UpsertPeer(&meshstate.PeerLink{ServerID: "peer-1", Host: "peer-host", Port: 8080})

	require.NoError(t, f.Announce(context.Background(), fixedNow()))
	require.Len(t, peerConn.sent, 1)
	assert.True(t, peerConn.sent[0].Type.Equal(wire.ServerAnnounce))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninit", StateUninit.String())
	assert.Equal(t, "dialing", StateDialing.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "isolated", StateIsolated.String())
}
