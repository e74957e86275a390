package routing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/signing"
	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
)

func newKey(t *testing.T) *nodekey.KeyPair {
	t.Helper()
	k, err := nodekey.Generate()
	require.NoError(t, err)
	return k
}

func newDirectMessage(t *testing.T, from, to wire.Identifier, ciphertext string) *wire.Envelope {
	t.Helper()
	env, err := wire.NewEnvelope(wire.DirectMessage, from, to, 100, wire.DirectMessagePayload{
		Ciphertext: ciphertext,
		SenderName: "Alice",
		SenderPub:  "sender-pub-key",
		ContentSig: "content-signature",
	})
	require.NoError(t, err)
	return env
}

func TestHandleDirectMessage_LocalDelivery(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	r := New(mesh, nil)

	fromID := wire.NewRandomID()
	toID := wire.NewRandomID()
	mesh.RegisterLocalUser(toID.String(), newKey(t))

	env := newDirectMessage(t, fromID, toID, "ciphertext-blob")
	require.NoError(t, r.HandleDirectMessage(env))

	pending := mesh.Drain(toID.String())
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Type.Equal(wire.UserDeliver))

	payload, err := wire.ExtractPayload[wire.UserDeliverPayload](pending[0])
	require.NoError(t, err)
	assert.Equal(t, "ciphertext-blob", payload.Ciphertext)
	assert.Equal(t, fromID.String(), payload.From)
	assert.Equal(t, "Alice", payload.SenderName)
	assert.Equal(t, "sender-pub-key", payload.SenderPub)
	assert.Equal(t, "content-signature", payload.ContentSig)

	require.NoError(t, signing.Verify(pending[0], selfKey))
}

func TestHandleDirectMessage_ForwardToPeer(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	r := New(mesh, nil)

	fromID := wire.NewRandomID()
	toID := wire.NewRandomID()
	peerID := wire.NewRandomID()

	mesh.SetUserHome(toID.String(), peerID.String())
	outbox := make(chan *wire.Envelope, 1)
	mesh.UpsertPeer(&meshstate.PeerLink{ServerID: peerID.String(), Outbox: outbox})

	env := newDirectMessage(t, fromID, toID, "ciphertext-blob")
	require.NoError(t, r.HandleDirectMessage(env))

	select {
	case fwd := <-outbox:
		assert.True(t, fwd.Type.Equal(wire.ServerDeliver))
		payload, err := wire.ExtractPayload[wire.ServerDeliverPayload](fwd)
		require.NoError(t, err)
		assert.Equal(t, toID.String(), payload.To)
		assert.Equal(t, "Alice", payload.SenderName)
		assert.Equal(t, "sender-pub-key", payload.SenderPub)
		assert.Equal(t, "content-signature", payload.ContentSig)
	default:
		t.Fatal("expected a SERVER_DELIVER on the peer outbox")
	}
}

func TestHandleDirectMessage_UnknownUser(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	r := New(mesh, nil)

	env := newDirectMessage(t, wire.NewRandomID(), wire.NewRandomID(), "blob")
	err := r.HandleDirectMessage(env)

	var notFound *ErrUserNotFound
	require.True(t, errors.As(err, &notFound))
}

func TestHandleChannelMessage_FansOutToLocalMembersOnly(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	r := New(mesh, nil)

	sender := "user-sender"
	localMember := "user-local"
	remoteMember := "user-remote"

	mesh.Channel().Join(sender)
	mesh.Channel().Join(localMember)
	mesh.Channel().Join(remoteMember)
	mesh.RegisterLocalUser(localMember, newKey(t))
	mesh.SetUserHome(remoteMember, "some-peer")

	from, err := wire.ParseIdentifier(sender)
	require.NoError(t, err)
	env, err := wire.NewEnvelope(wire.PublicChannelMessage, from, wire.Broadcast, 50, wire.ChannelMessagePayload{
		Channel:    "general",
		From:       sender,
		Ciphertext: "hello-everyone",
	})
	require.NoError(t, err)

	require.NoError(t, r.HandleChannelMessage(env))

	localPending := mesh.Drain(localMember)
	require.Len(t, localPending, 1)
	assert.True(t, localPending[0].Type.Equal(wire.PublicChannelMessage))

	remotePending := mesh.Drain(remoteMember)
	assert.Empty(t, remotePending, "v1 does no cross-node channel fan-out")

	msgs := mesh.Channel().MessagesSince(0)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello-everyone", msgs[0].Body)
}

func TestHandleChannelMessage_RejectsNonMember(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	r := New(mesh, nil)

	from, err := wire.ParseIdentifier("user-outsider")
	require.NoError(t, err)
	env, err := wire.NewEnvelope(wire.PublicChannelMessage, from, wire.Broadcast, 50, wire.ChannelMessagePayload{
		Channel:    "general",
		From:       "user-outsider",
		Ciphertext: "hi",
	})
	require.NoError(t, err)

	err = r.HandleChannelMessage(env)
	assert.Error(t, err)
	assert.Empty(t, mesh.Channel().MessagesSince(0))
}

func TestHandleChannelJoinAndLeave(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	r := New(mesh, nil)

	from, err := wire.ParseIdentifier("user-1")
	require.NoError(t, err)
	joinEnv, err := wire.NewEnvelope(wire.PublicChannelJoin, from, wire.Broadcast, 1, wire.ChannelJoinPayload{
		Channel: "general",
		UserID:  "user-1",
	})
	require.NoError(t, err)
	require.NoError(t, r.HandleChannelJoin(joinEnv))
	assert.True(t, mesh.Channel().IsMember("user-1"))

	leaveEnv, err := wire.NewEnvelope(wire.PublicChannelLeave, from, wire.Broadcast, 2, wire.ChannelLeavePayload{
		Channel: "general",
		UserID:  "user-1",
	})
	require.NoError(t, err)
	require.NoError(t, r.HandleChannelLeave(leaveEnv))
	assert.False(t, mesh.Channel().IsMember("user-1"))
}
