package routing

import (
	"fmt"

	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/metrics"
	"github.com/veilnet/veilnet/internal/signing"
	"github.com/veilnet/veilnet/pkg/wire"
)

// HandleDirectMessage restates handle_direct_message/direct_message_http's
// merged intent per spec.md §4.6's decision table: a local recipient gets
// the ciphertext re-wrapped as USER_DELIVER and queued; a recipient owned
// by a peer gets it forwarded as SERVER_DELIVER over that peer's outbox;
// an unknown recipient yields ErrUserNotFound.
//
// The Rust reference signs the re-wrapped USER_DELIVER with the literal
// placeholder string "server_sig_placeholder"; this signs it for real
// with the relaying node's own key via internal/signing, so a recipient
// can verify the immediate hop instead of trusting an unsigned envelope.
func (r *Router) HandleDirectMessage(env *wire.Envelope) error {
	if !env.Type.Equal(wire.DirectMessage) {
		return fmt.Errorf("routing: expected DIRECT_MESSAGE, got %s", env.Type)
	}
	payload, err := wire.ExtractPayload[wire.DirectMessagePayload](env)
	if err != nil {
		metrics.RoutingErrors.WithLabelValues("extract").Inc()
		return fmt.Errorf("routing: extract DIRECT_MESSAGE payload: %w", err)
	}

	toUserID := env.To.String()
	home, ok := r.mesh.UserHome(toUserID)
	if !ok {
		metrics.RoutingErrors.WithLabelValues("user_not_found").Inc()
		return &ErrUserNotFound{UserID: toUserID}
	}

	if home == meshstate.LocalServerID {
		return r.deliverLocal(env, toUserID, payload)
	}
	return r.forwardToPeer(env, home, toUserID, payload)
}

func (r *Router) deliverLocal(env *wire.Envelope, toUserID string, payload wire.DirectMessagePayload) error {
	self, err := wire.ParseIdentifier(r.selfIdentifierString())
	if err != nil {
		return fmt.Errorf("routing: parse self server id: %w", err)
	}

	deliver, err := wire.NewEnvelope(wire.UserDeliver, self, env.To, env.Ts, wire.UserDeliverPayload{
		From:       env.From.String(),
		SenderName: payload.SenderName,
		SenderPub:  payload.SenderPub,
		Ciphertext: payload.Ciphertext,
		ContentSig: payload.ContentSig,
	})
	if err != nil {
		return fmt.Errorf("routing: build USER_DELIVER: %w", err)
	}
	if err := signing.Sign(deliver, r.mesh.SelfKey); err != nil {
		return fmt.Errorf("routing: sign USER_DELIVER: %w", err)
	}

	if err := r.mesh.Enqueue(toUserID, deliver); err != nil {
		metrics.RoutingErrors.WithLabelValues("queue_full").Inc()
		return fmt.Errorf("routing: enqueue USER_DELIVER: %w", err)
	}

	metrics.EnvelopesRouted.WithLabelValues(env.Type.String(), "delivered_local").Inc()
	r.log.Info("routed direct message locally", logger.String("user_id", toUserID))
	return nil
}

func (r *Router) forwardToPeer(env *wire.Envelope, serverID, toUserID string, payload wire.DirectMessagePayload) error {
	peer, ok := r.mesh.Peer(serverID)
	if !ok {
		metrics.RoutingErrors.WithLabelValues("peer_not_found").Inc()
		return &ErrUserNotFound{UserID: toUserID}
	}

	self, err := wire.ParseIdentifier(r.selfIdentifierString())
	if err != nil {
		return fmt.Errorf("routing: parse self server id: %w", err)
	}

	fwd, err := wire.NewEnvelope(wire.ServerDeliver, self, env.To, env.Ts, wire.ServerDeliverPayload{
		To:         toUserID,
		From:       env.From.String(),
		SenderName: payload.SenderName,
		SenderPub:  payload.SenderPub,
		Ciphertext: payload.Ciphertext,
		ContentSig: payload.ContentSig,
	})
	if err != nil {
		return fmt.Errorf("routing: build SERVER_DELIVER: %w", err)
	}
	if err := signing.Sign(fwd, r.mesh.SelfKey); err != nil {
		return fmt.Errorf("routing: sign SERVER_DELIVER: %w", err)
	}

	if err := sendToOutbox(peer, fwd); err != nil {
		metrics.RoutingErrors.WithLabelValues("outbox_full").Inc()
		return fmt.Errorf("routing: forward to peer %s: %w", serverID, err)
	}

	metrics.EnvelopesRouted.WithLabelValues(env.Type.String(), "forwarded_peer").Inc()
	r.log.Info("forwarded direct message to peer",
		logger.String("user_id", toUserID), logger.String("server_id", serverID))
	return nil
}

// sendToOutbox hands env to a peer link's outbox without blocking: the
// single writer goroutine that owns the connection drains it, and a full
// outbox (a stalled or dead link) drops the message rather than stalling
// the caller, matching Peers' documented "never send while holding a
// table lock" contract with an explicit non-blocking send instead.
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
