package presence

import (
	"github.com/veilnet/veilnet/internal/apierr"
	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/signing"
	"github.com/veilnet/veilnet/pkg/wire"
)

// HandleUserAdvertise applies an incoming USER_ADVERTISE gossip envelope,
// restated from original_source/server/src/handlers/user_advertise.rs's
// handle_user_advertise. Unlike the reference, which carries a
// `// TODO: Implement signature verification`, this verifies the sender
// against its pinned peer public key before trusting the update. The
// envelope is not forwarded to other peers, so USER_ADVERTISE reaches only
// the originating server's direct neighbors.
func (p *Presence) HandleUserAdvertise(env *wire.Envelope) error {
	if !env.Type.Equal(wire.UserAdvertise) {
		return apierr.NewClientError(wire.ErrCodeInvalidPayloadType, "expected USER_ADVERTISE, got %s", env.Type)
	}

	payload, err := wire.ExtractPayload[wire.UserAdvertisePayload](env)
	if err != nil {
		return apierr.NewClientError(wire.ErrCodePayloadExtraction, "%v", err)
	}

	if err := p.verifyServerSignature(env); err != nil {
		return err
	}

	p.mesh.SetUserHome(payload.UserID, payload.ServerID)
	p.log.Info("gossip: user advertised",
		logger.String("user_id", payload.UserID),
		logger.String("server_id", payload.ServerID))
	return nil
}

// HandleUserRemove applies an incoming USER_REMOVE gossip envelope,
// restated from user_remove.rs's handle_user_remove. The removal is
// hand-off-safe: it only clears UserHome when the table still names the
// removing server, so a USER_ADVERTISE that already moved the user
// elsewhere (a race between hand-off and a stale REMOVE) is never undone.
func (p *Presence) HandleUserRemove(env *wire.Envelope) error {
	if !env.Type.Equal(wire.UserRemove) {
		return apierr.NewClientError(wire.ErrCodeInvalidPayloadType, "expected USER_REMOVE, got %s", env.Type)
	}

	payload, err := wire.ExtractPayload[wire.UserRemovePayload](env)
	if err != nil {
		return apierr.NewClientError(wire.ErrCodePayloadExtraction, "%v", err)
	}

	if err := p.verifyServerSignature(env); err != nil {
		return err
	}

	removed := p.mesh.RemoveUserHome(payload.UserID, payload.ServerID)
	if removed {
		p.log.Info("gossip: user removed",
			logger.String("user_id", payload.UserID),
			logger.String("server_id", payload.ServerID))
	} else {
		p.log.Info("gossip: ignored stale user removal",
			logger.String("user_id", payload.UserID),
			logger.String("server_id", payload.ServerID))
	}
	return nil
}

// verifyServerSignature checks env.Sig against the pinned public key of
// the peer named in env.From, refusing gossip from servers this node
// hasn't completed a handshake with.
func (p *Presence) verifyServerSignature(env *wire.Envelope) error {
	if !env.From.IsID() && !env.From.IsBootstrap() {
		return apierr.NewClientError(wire.ErrCodeInvalidSignature, "gossip must come from a server identifier")
	}

	peer, ok := p.mesh.Peer(env.From.String())
	if !ok || peer.PubKey == nil {
		return apierr.NewClientError(wire.ErrCodeServerNotFound, "unknown gossip source: %s", env.From)
	}

	if err := signing.Verify(env, peer.PubKey); err != nil {
		return apierr.NewClientError(wire.ErrCodeInvalidSignature, "gossip signature verification failed: %v", err)
	}
	return nil
}
