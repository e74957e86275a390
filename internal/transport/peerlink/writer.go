package peerlink

import (
	"context"

	"github.com/veilnet/veilnet/internal/federation"
	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
)

// RunWriter drains peer.Outbox over conn until ctx is cancelled or the
// connection errors, implementing the single-writer-goroutine-per-peer
// design internal/routing and internal/filerelay's sendToOutbox rely on.
// It marks the peer connected on entry and disconnected on exit.
func RunWriter(ctx context.Context, mesh *meshstate.State, conn federation.PeerConn, peer *meshstate.PeerLink, log logger.Logger) {
	mesh.SetPeerConnected(peer.ServerID, true)
	defer mesh.SetPeerConnected(peer.ServerID, false)

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-peer.Outbox:
			if !ok {
				return
			}
			if err := conn.Send(env); err != nil {
				log.Warn("peerlink: send failed, dropping connection",
					logger.String("server_id", peer.ServerID), logger.Error(err))
				return
			}
		}
	}
}
