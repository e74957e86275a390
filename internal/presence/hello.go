package presence

import (
	"context"
	"fmt"

	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/signing"
	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
)

// HandleUserHello registers a freshly connected local user, stamps
// LastSeen, and gossips USER_ADVERTISE to the mesh so every peer updates
// its UserHome entry. Restated from
// original_source/server/src/handlers/user_hello.rs's handle_user_hello,
// with the Rust reference's in-process HTTP/WS duplication collapsed into
// one entry point shared by both transports.
func (p *Presence) HandleUserHello(ctx context.Context, userID string, userKey *nodekey.KeyPair, meta wire.UserMetadata, now func() int64) error {
	p.mesh.RegisterLocalUser(userID, userKey)
	p.log.Info("user hello: registered local user", logger.String("user_id", userID))

	self, err := p.selfIdentifier()
	if err != nil {
		return fmt.Errorf("presence: parse self server id: %w", err)
	}

	env, err := wire.NewEnvelope(wire.UserAdvertise, self, wire.Broadcast, now(), wire.UserAdvertisePayload{
		UserID:   userID,
		ServerID: p.mesh.SelfServerID,
		Meta:     meta,
	})
	if err != nil {
		return fmt.Errorf("presence: build USER_ADVERTISE: %w", err)
	}
	if err := signing.Sign(env, p.mesh.SelfKey); err != nil {
		return fmt.Errorf("presence: sign USER_ADVERTISE: %w", err)
	}

	p.gossip(ctx, env)
	return nil
}
