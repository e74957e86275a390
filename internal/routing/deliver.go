package routing

import (
	"fmt"

	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/metrics"
	"github.com/veilnet/veilnet/internal/signing"
	"github.com/veilnet/veilnet/pkg/wire"
)

// HandleServerDeliver applies an incoming SERVER_DELIVER from a peer that
// forwarded a direct message to a user this node now hosts, restated from
// original_source/server/src/handlers/server_deliver.rs's
// handle_server_deliver. The reference carries a
// `// TODO: Implement signature verification with server public keys` and
// never checks the forwarder's identity; this verifies env.Sig against the
// sending peer's pinned public key before the message is ever queued.
func (r *Router) HandleServerDeliver(env *wire.Envelope) error {
	if !env.Type.Equal(wire.ServerDeliver) {
		return fmt.Errorf("routing: expected SERVER_DELIVER, got %s", env.Type)
	}
	payload, err := wire.ExtractPayload[wire.ServerDeliverPayload](env)
	if err != nil {
		metrics.RoutingErrors.WithLabelValues("extract").Inc()
		return fmt.Errorf("routing: extract SERVER_DELIVER payload: %w", err)
	}

	if err := r.verifyPeerSignature(env); err != nil {
		metrics.RoutingErrors.WithLabelValues("bad_signature").Inc()
		return err
	}

	home, ok := r.mesh.UserHome(payload.To)
	if !ok || home != meshstate.LocalServerID {
		metrics.RoutingErrors.WithLabelValues("user_not_found").Inc()
		return &ErrUserNotFound{UserID: payload.To}
	}

	self, err := wire.ParseIdentifier(r.selfIdentifierString())
	if err != nil {
		return fmt.Errorf("routing: parse self server id: %w", err)
	}
	to, err := wire.ParseIdentifier(payload.To)
	if err != nil {
		return fmt.Errorf("routing: invalid to user_id %q: %w", payload.To, err)
	}

	deliver, err := wire.NewEnvelope(wire.UserDeliver, self, to, env.Ts, wire.UserDeliverPayload{
		From:       payload.From,
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

	if err := r.mesh.Enqueue(payload.To, deliver); err != nil {
		metrics.RoutingErrors.WithLabelValues("queue_full").Inc()
		return fmt.Errorf("routing: enqueue USER_DELIVER: %w", err)
	}

	metrics.EnvelopesRouted.WithLabelValues(env.Type.String(), "delivered_local").Inc()
	r.log.Info("delivered forwarded message locally", logger.String("user_id", payload.To))
	return nil
}

// verifyPeerSignature checks env.Sig against the pinned public key of the
// peer named in env.From, the same trust boundary presence.gossip.go
// enforces for USER_ADVERTISE/USER_REMOVE.
func (r *Router) verifyPeerSignature(env *wire.Envelope) error {
	if !env.From.IsID() && !env.From.IsBootstrap() {
		return fmt.Errorf("routing: SERVER_DELIVER must come from a server identifier")
	}
	peer, ok := r.mesh.Peer(env.From.String())
	if !ok || peer.PubKey == nil {
		return fmt.Errorf("routing: unknown forwarding server: %s", env.From)
	}
	if err := signing.Verify(env, peer.PubKey); err != nil {
		return fmt.Errorf("routing: SERVER_DELIVER signature verification failed: %w", err)
	}
	return nil
}
