package federation

import (
	"context"
	"fmt"

	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/metrics"
	"github.com/veilnet/veilnet/internal/signing"
	"github.com/veilnet/veilnet/pkg/wire"
	"golang.org/x/sync/errgroup"
)

// Announce broadcasts SERVER_ANNOUNCE to every peer currently in the
// mesh state table, restated from
// original_source/server/src/bootstrap.rs's announce_to_network as a
// bounded-concurrency fan-out instead of a sequential loop. Each send is
// independent and best-effort: one peer being unreachable never fails
// the others, matching the reference's per-peer error logging.
func (f *Federation) Announce(ctx context.Context, now func() int64) error {
	self, err := f.selfIdentifier()
	if err != nil {
		return fmt.Errorf("parse self server id: %w", err)
	}
	pub, err := f.selfPubKeyB64()
	if err != nil {
		return fmt.Errorf("encode self public key: %w", err)
	}

	env, err := wire.NewEnvelope(wire.ServerAnnounce, self, wire.Broadcast, now(), wire.AnnouncePayload{
		ServerID: self.String(),
		Host:     f.selfHost,
		Port:     f.selfPort,
		PubKey:   pub,
	})
	if err != nil {
		return fmt.Errorf("build ANNOUNCE: %w", err)
	}
	if err := signing.Sign(env, f.mesh.SelfKey); err != nil {
		return fmt.Errorf("sign ANNOUNCE: %w", err)
	}

	return f.fanOut(ctx, env, self.String())
}

// Broadcast fans an arbitrary signed envelope out to every known peer
// except skipServerID (pass "" to include all peers), with the same
// bounded-concurrency, best-effort semantics as Announce. Presence's
// USER_ADVERTISE/USER_REMOVE gossip reuses this rather than duplicating
// the peer fan-out loop.
func (f *Federation) Broadcast(ctx context.Context, env *wire.Envelope) error {
	return f.fanOut(ctx, env, "")
}

func (f *Federation) fanOut(ctx context.Context, env *wire.Envelope, skipServerID string) error {
	peers := f.mesh.Peers()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, peer := range peers {
		peer := peer
		if skipServerID != "" && peer.ServerID == skipServerID {
			continue
		}
		g.Go(func() error {
			f.announceOne(gctx, peer, env)
			return nil // best-effort: never fail the group for one peer
		})
	}

	return g.Wait()
}

func (f *Federation) announceOne(ctx context.Context, peer *meshstate.PeerLink, env *wire.Envelope) {
	conn, err := f.dialer.Dial(ctx, peer.Host, peer.Port)
	if err != nil {
		f.log.Warn("announce: dial failed", logger.String("server_id", peer.ServerID), logger.Error(err))
		metrics.AnnouncesSent.WithLabelValues("error").Inc()
		return
	}
	defer conn.Close()

	if err := conn.Send(env); err != nil {
		f.log.Warn("announce: send failed", logger.String("server_id", peer.ServerID), logger.Error(err))
		metrics.AnnouncesSent.WithLabelValues("error").Inc()
		return
	}

	metrics.AnnouncesSent.WithLabelValues("success").Inc()
	f.log.Info("announced to peer", logger.String("server_id", peer.ServerID))
}
