package meshstate

import (
	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
)

// UpsertPeer registers or refreshes a peer link. Idempotent: calling it
// twice for the same server_id replaces the link rather than duplicating
// it, giving bootstrap retries and re-announces a safe default.
func (s *State) UpsertPeer(link *PeerLink) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	s.peers[link.ServerID] = link
}

// Peer returns the peer link for serverID, if known.
func (s *State) Peer(serverID string) (*PeerLink, bool) {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	p, ok := s.peers[serverID]
	return p, ok
}

// RemovePeer drops a peer link. Returns false if the peer was already
// gone, so hand-off races between two REMOVE gossips stay harmless.
func (s *State) RemovePeer(serverID string) bool {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	if _, ok := s.peers[serverID]; !ok {
		return false
	}
	delete(s.peers, serverID)
	return true
}

// Peers returns a snapshot slice of every known peer link. Callers must
// not send on a peer's Outbox while holding any table lock; snapshot
// first, release, then send.
func (s *State) Peers() []*PeerLink {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	out := make([]*PeerLink, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	return out
}

// PeerCount reports how many peer links are currently known.
func (s *State) PeerCount() int {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	return len(s.peers)
}

// SetPeerPubKey updates the pinned public key for an existing peer, used
// when a WELCOME or ANNOUNCE carries a refreshed key for a server already
// in the table.
func (s *State) SetPeerPubKey(serverID string, key *nodekey.KeyPair) bool {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	p, ok := s.peers[serverID]
	if !ok {
		return false
	}
	p.PubKey = key
	return true
}

// EnsureOutbox lazily creates a peer's outbound send queue if it doesn't
// have one yet and returns it, so the writer goroutine that owns the
// live connection and any caller forwarding an envelope always agree on
// the same channel instead of racing on first assignment.
func (s *State) EnsureOutbox(serverID string, size int) (chan *wire.Envelope, bool) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	p, ok := s.peers[serverID]
	if !ok {
		return nil, false
	}
	if p.Outbox == nil {
		p.Outbox = make(chan *wire.Envelope, size)
	}
	return p.Outbox, true
}

// SetPeerConnected flips a peer's liveness flag, used by the connection
// goroutines that own a peer link's lifecycle.
func (s *State) SetPeerConnected(serverID string, connected bool) bool {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	p, ok := s.peers[serverID]
	if !ok {
		return false
	}
	p.Connected = connected
	return true
}
