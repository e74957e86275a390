package filerelay

import (
	"fmt"

	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/pkg/wire"
)

// HandleFileStart records the transfer's route and delivers the FILE_START
// event, restated from handle_file_transfer_start.
func (r *Relay) HandleFileStart(env *wire.Envelope) error {
	if !env.Type.Equal(wire.FileStart) {
		return fmt.Errorf("filerelay: expected FILE_START, got %s", env.Type)
	}
	payload, err := wire.ExtractPayload[wire.FileStartPayload](env)
	if err != nil {
		return fmt.Errorf("filerelay: extract FILE_START payload: %w", err)
	}
	if payload.Receiver == "" && payload.Channel == "" {
		return &ErrNoRoute{FileID: payload.FileID}
	}

	rt := route{sender: payload.Sender, receiver: payload.Receiver, channel: payload.Channel}
	r.putRoute(payload.FileID, rt)

	r.log.Info("file transfer started",
		logger.String("file_id", payload.FileID), logger.String("filename", payload.Filename))
	return r.deliver(env, rt, "start")
}

// HandleFileChunk delivers one FILE_CHUNK event along the route recorded
// at FILE_START, restated from handle_file_transfer_chunk.
func (r *Relay) HandleFileChunk(env *wire.Envelope) error {
	if !env.Type.Equal(wire.FileChunk) {
		return fmt.Errorf("filerelay: expected FILE_CHUNK, got %s", env.Type)
	}
	payload, err := wire.ExtractPayload[wire.FileChunkPayload](env)
	if err != nil {
		return fmt.Errorf("filerelay: extract FILE_CHUNK payload: %w", err)
	}
	rt, ok := r.getRoute(payload.FileID)
	if !ok {
		return &ErrUnknownTransfer{FileID: payload.FileID}
	}
	return r.deliver(env, rt, "chunk")
}

// HandleFileEnd delivers the FILE_END event and forgets the transfer's
// route, restated from handle_file_transfer_end.
func (r *Relay) HandleFileEnd(env *wire.Envelope) error {
	if !env.Type.Equal(wire.FileEnd) {
		return fmt.Errorf("filerelay: expected FILE_END, got %s", env.Type)
	}
	payload, err := wire.ExtractPayload[wire.FileEndPayload](env)
	if err != nil {
		return fmt.Errorf("filerelay: extract FILE_END payload: %w", err)
	}
	rt, ok := r.getRoute(payload.FileID)
	if !ok {
		return &ErrUnknownTransfer{FileID: payload.FileID}
	}
	defer r.dropRoute(payload.FileID)

	r.log.Info("file transfer ended", logger.String("file_id", payload.FileID))
	return r.deliver(env, rt, "end")
}

// deliver sends env to rt's recipient(s): a direct transfer lands on the
// recipient's Pending FIFO (local) or that peer's Outbox (remote); a
// public-channel transfer appends to the channel's bounded file-event
// ring and fans out to this node's local channel members, matching
// internal/routing.HandleChannelMessage's node-local-only fan-out scope
// for v1.
func (r *Relay) deliver(env *wire.Envelope, rt route, kind string) error {
	if rt.channel != "" {
		ch := r.mesh.Channel()
		ch.PostFileEvent(rt.sender, kind, env.Payload, env.Ts)
		for _, member := range ch.Members() {
			if member == rt.sender {
				continue
			}
			if _, ok := r.mesh.LocalUser(member); !ok {
				continue
			}
			if err := r.mesh.Enqueue(member, env); err != nil {
				r.log.Warn("file relay: channel fan-out enqueue failed",
					logger.String("user_id", member), logger.Error(err))
			}
		}
		return nil
	}

	home, ok := r.mesh.UserHome(rt.receiver)
	if !ok {
		return fmt.Errorf("filerelay: recipient %s has no known home", rt.receiver)
	}
	if home == meshstate.LocalServerID {
		return r.mesh.Enqueue(rt.receiver, env)
	}

	peer, ok := r.mesh.Peer(home)
	if !ok {
		return fmt.Errorf("filerelay: peer %s for recipient %s not connected", home, rt.receiver)
	}
	return sendToOutbox(peer, env)
}

func sendToOutbox(peer *meshstate.PeerLink, env *wire.Envelope) error {
	if peer.Outbox == nil {
		return fmt.Errorf("peer %s has no outbox", peer.ServerID)
	}
	select {
	case peer.Outbox <- env:
		return nil
	default:
		return fmt.Errorf("peer %s outbox full", peer.ServerID)
	}
}
