package filerelay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
)

func newKey(t *testing.T) *nodekey.KeyPair {
	t.Helper()
	k, err := nodekey.Generate()
	require.NoError(t, err)
	return k
}

func newEnv(t *testing.T, typ wire.PayloadType, payload any) *wire.Envelope {
	t.Helper()
	env, err := wire.NewEnvelope(typ, wire.NewRandomID(), wire.NewRandomID(), 1, payload)
	require.NoError(t, err)
	return env
}

func TestDirectFileTransfer_LocalRecipient(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	r := New(mesh, nil)

	receiver := "user-receiver"
	mesh.RegisterLocalUser(receiver, newKey(t))

	start := newEnv(t, wire.FileStart, wire.FileStartPayload{
		FileID: "f1", Filename: "a.txt", Filesize: 10, Sender: "user-sender", Receiver: receiver,
	})
	require.NoError(t, r.HandleFileStart(start))

	chunk := newEnv(t, wire.FileChunk, wire.FileChunkPayload{FileID: "f1", Index: 0, Data: "aGVsbG8="})
	require.NoError(t, r.HandleFileChunk(chunk))

	end := newEnv(t, wire.FileEnd, wire.FileEndPayload{FileID: "f1"})
	require.NoError(t, r.HandleFileEnd(end))

	pending := mesh.Drain(receiver)
	require.Len(t, pending, 3)
	assert.True(t, pending[0].Type.Equal(wire.FileStart))
	assert.True(t, pending[1].Type.Equal(wire.FileChunk))
	assert.True(t, pending[2].Type.Equal(wire.FileEnd))

	// route should be forgotten after FILE_END
	_, err := wire.ExtractPayload[wire.FileEndPayload](end)
	require.NoError(t, err)
	err = r.HandleFileEnd(end)
	assert.Error(t, err, "a second FILE_END for the same transfer must fail: route was dropped")
}

func TestDirectFileTransfer_ForwardsToPeer(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	r := New(mesh, nil)

	receiver := "user-remote"
	peerID := wire.NewRandomID()
	mesh.SetUserHome(receiver, peerID.String())
	outbox := make(chan *wire.Envelope, 4)
	mesh.UpsertPeer(&meshstate.PeerLink{ServerID: peerID.String(), Outbox: outbox})

	start := newEnv(t, wire.FileStart, wire.FileStartPayload{
		FileID: "f2", Filename: "b.txt", Filesize: 5, Sender: "user-sender", Receiver: receiver,
	})
	require.NoError(t, r.HandleFileStart(start))

	select {
	case fwd := <-outbox:
		assert.True(t, fwd.Type.Equal(wire.FileStart))
	default:
		t.Fatal("expected FILE_START forwarded to peer outbox")
	}
}

func TestChunkOrEnd_UnknownTransfer(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	r := New(mesh, nil)

	chunk := newEnv(t, wire.FileChunk, wire.FileChunkPayload{FileID: "ghost", Index: 0, Data: "x"})
	err := r.HandleFileChunk(chunk)
	var unknown *ErrUnknownTransfer
	require.ErrorAs(t, err, &unknown)
}

func TestChannelFileTransfer_FansOutAndRecordsFileEvent(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 3)
	r := New(mesh, nil)

	sender := "user-sender"
	member := "user-member"
	mesh.Channel().Join(sender)
	mesh.Channel().Join(member)
	mesh.RegisterLocalUser(member, newKey(t))

	start := newEnv(t, wire.FileStart, wire.FileStartPayload{
		FileID: "f3", Filename: "c.txt", Filesize: 1, Sender: sender, Channel: "general",
	})
	require.NoError(t, r.HandleFileStart(start))

	pending := mesh.Drain(member)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Type.Equal(wire.FileStart))

	events := mesh.Channel().FileEventsSince(0)
	require.Len(t, events, 1)
	assert.Equal(t, "start", events[0].Kind)
}

func TestFileStart_NoRouteRejected(t *testing.T) {
	selfKey := newKey(t)
	mesh := meshstate.New(wire.NewRandomID().String(), selfKey, 10, 10)
	r := New(mesh, nil)

	start := newEnv(t, wire.FileStart, wire.FileStartPayload{FileID: "f4", Filename: "d.txt", Sender: "s"})
	err := r.HandleFileStart(start)
	var noRoute *ErrNoRoute
	require.ErrorAs(t, err, &noRoute)
}
