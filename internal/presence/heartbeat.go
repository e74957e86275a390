package presence

import (
	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/metrics"
)

// HandleHeartbeat refreshes LastSeen for a local user, restated from
// original_source/server/src/handlers/heartbeat.rs's handle_heartbeat.
// It only covers client heartbeats: a server-to-server HEARTBEAT is
// handled by internal/transport/peerlink, which marks the peer connected.
// Returns false if no local user with that ID exists, which callers
// report as USER_NOT_FOUND rather than a hard error.
func (p *Presence) HandleHeartbeat(userID string) bool {
	metrics.HeartbeatsReceived.Inc()
	ok := p.mesh.Touch(userID)
	if ok {
		p.log.Info("heartbeat: refreshed local user", logger.String("user_id", userID))
	} else {
		p.log.Warn("heartbeat: unknown local user", logger.String("user_id", userID))
	}
	return ok
}
