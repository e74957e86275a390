package meshstate

import (
	"time"

	"github.com/veilnet/veilnet/pkg/nodekey"
)

// RegisterLocalUser adds or refreshes a directly-connected user and marks
// user_home[user_id] = "local", matching USER_HELLO handling.
func (s *State) RegisterLocalUser(userID string, key *nodekey.KeyPair) {
	s.localUsersMu.Lock()
	s.localUsers[userID] = &LocalUser{UserID: userID, PubKey: key, LastSeen: time.Now()}
	s.localUsersMu.Unlock()

	s.userHomeMu.Lock()
	s.userHome[userID] = LocalServerID
	s.userHomeMu.Unlock()

	s.SetUserPubKey(userID, key)
}

// Touch refreshes LastSeen for a local user on a heartbeat. Returns false
// if the user isn't registered locally.
func (s *State) Touch(userID string) bool {
	s.localUsersMu.Lock()
	defer s.localUsersMu.Unlock()
	u, ok := s.localUsers[userID]
	if !ok {
		return false
	}
	u.LastSeen = time.Now()
	return true
}

// LocalUser returns the local user record, if any.
func (s *State) LocalUser(userID string) (*LocalUser, bool) {
	s.localUsersMu.RLock()
	defer s.localUsersMu.RUnlock()
	u, ok := s.localUsers[userID]
	return u, ok
}

// RemoveLocalUser drops a user's local connection record. It does not
// touch user_home; callers that handle disconnects decide separately
// whether to also clear the home mapping, since a USER_REMOVE gossip to
// peers must still go out first.
func (s *State) RemoveLocalUser(userID string) {
	s.localUsersMu.Lock()
	delete(s.localUsers, userID)
	s.localUsersMu.Unlock()
}

// LocalUsers returns a snapshot of every locally connected user ID.
func (s *State) LocalUsers() []string {
	s.localUsersMu.RLock()
	defer s.localUsersMu.RUnlock()
	out := make([]string, 0, len(s.localUsers))
	for id := range s.localUsers {
		out = append(out, id)
	}
	return out
}

// StaleLocalUsers returns the user IDs whose LastSeen is older than
// staleAfter, for the presence sweep to evict.
func (s *State) StaleLocalUsers(staleAfter time.Duration) []string {
	cutoff := time.Now().Add(-staleAfter)
	s.localUsersMu.RLock()
	defer s.localUsersMu.RUnlock()
	var out []string
	for id, u := range s.localUsers {
		if u.LastSeen.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

// SetUserHome records where user_id currently lives: LocalServerID or a
// peer's server_id.
func (s *State) SetUserHome(userID, serverID string) {
	s.userHomeMu.Lock()
	defer s.userHomeMu.Unlock()
	s.userHome[userID] = serverID
}

// UserHome looks up where a user currently lives.
func (s *State) UserHome(userID string) (string, bool) {
	s.userHomeMu.RLock()
	defer s.userHomeMu.RUnlock()
	home, ok := s.userHome[userID]
	return home, ok
}

// RemoveUserHome clears a user's home entry, used when a USER_REMOVE
// gossip confirms the user is gone from its previous home and no other
// home has claimed it since.
func (s *State) RemoveUserHome(userID, expectServerID string) bool {
	s.userHomeMu.Lock()
	defer s.userHomeMu.Unlock()
	if home, ok := s.userHome[userID]; !ok || home != expectServerID {
		return false
	}
	delete(s.userHome, userID)
	return true
}

// SetUserPubKey caches a user's public key, independent of where they
// currently live, so DIRECT_MESSAGE re-signing and delivery work across
// home changes.
func (s *State) SetUserPubKey(userID string, key *nodekey.KeyPair) {
	s.pubKeysMu.Lock()
	defer s.pubKeysMu.Unlock()
	s.userPubKeys[userID] = key
}

// UserPubKey returns a user's cached public key.
func (s *State) UserPubKey(userID string) (*nodekey.KeyPair, bool) {
	s.pubKeysMu.RLock()
	defer s.pubKeysMu.RUnlock()
	key, ok := s.userPubKeys[userID]
	return key, ok
}

// ListUsers returns every user_id this node has a home entry for,
// regardless of whether they're local or remote, for the LIST_USERS API.
func (s *State) ListUsers() []string {
	s.userHomeMu.RLock()
	defer s.userHomeMu.RUnlock()
	out := make([]string, 0, len(s.userHome))
	for id := range s.userHome {
		out = append(out, id)
	}
	return out
}
