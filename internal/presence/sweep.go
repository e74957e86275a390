package presence

import (
	"context"
	"time"

	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/signing"
	"github.com/veilnet/veilnet/pkg/wire"
)

// RunSweep ticks every interval and evicts any local user whose LastSeen
// exceeds staleAfter, gossiping USER_REMOVE for each one. Restated from
// the teacher's background-cleanup-ticker idiom (core/session/manager.go's
// NewManager/runCleanup), generalized from session expiry to user
// staleness and moved onto context cancellation instead of a dedicated
// stop channel. Blocks until ctx is done; run it in its own goroutine.
func (p *Presence) RunSweep(ctx context.Context, interval, staleAfter time.Duration, now func() int64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweepOnce(ctx, staleAfter, now)
		}
	}
}

func (p *Presence) sweepOnce(ctx context.Context, staleAfter time.Duration, now func() int64) {
	stale := p.mesh.StaleLocalUsers(staleAfter)
	if len(stale) == 0 {
		return
	}

	self, err := p.selfIdentifier()
	if err != nil {
		p.log.Error("sweep: parse self server id", logger.Error(err))
		return
	}

	for _, userID := range stale {
		p.mesh.RemoveLocalUser(userID)
		p.mesh.RemoveUserHome(userID, meshstate.LocalServerID)
		p.log.Info("sweep: evicted stale local user", logger.String("user_id", userID))

		env, err := wire.NewEnvelope(wire.UserRemove, self, wire.Broadcast, now(), wire.UserRemovePayload{
			UserID:   userID,
			ServerID: p.mesh.SelfServerID,
		})
		if err != nil {
			p.log.Error("sweep: build USER_REMOVE", logger.String("user_id", userID), logger.Error(err))
			continue
		}
		if err := signing.Sign(env, p.mesh.SelfKey); err != nil {
			p.log.Error("sweep: sign USER_REMOVE", logger.String("user_id", userID), logger.Error(err))
			continue
		}
		p.gossip(ctx, env)
	}

	recordSweepRemovals(len(stale))
}
