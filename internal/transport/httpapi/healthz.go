package httpapi

import (
	"net/http"

	"github.com/veilnet/veilnet/health"
)

// handleHealthz answers GET /healthz with the node status shape from
// health.NodeStatus. When no HealthChecker was wired (standalone tests,
// or a node started without --health), the status field is always "ok"
// and the response is 200.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	bootstrapped := s.fed != nil && s.fed.Bootstrapped()
	peerCount := s.mesh.PeerCount()
	localUsers := len(s.mesh.LocalUsers())

	if s.health == nil {
		s.writeJSON(w, http.StatusOK, healthzResponse{
			Status:         "ok",
			Bootstrapped:   bootstrapped,
			PeerCount:      peerCount,
			LocalUserCount: localUsers,
		})
		return
	}

	overall := s.health.GetOverallStatus(r.Context())
	status := http.StatusOK
	if overall != health.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, healthzResponse{
		Status:         string(overall),
		Bootstrapped:   bootstrapped,
		PeerCount:      peerCount,
		LocalUserCount: localUsers,
	})
}

type healthzResponse struct {
	Status         string `json:"status"`
	Bootstrapped   bool   `json:"bootstrapped"`
	PeerCount      int    `json:"peer_count"`
	LocalUserCount int    `json:"local_user_count"`
}
