package meshstate

import "github.com/veilnet/veilnet/pkg/wire"

// ErrQueueFull is returned by Enqueue when a user's mailbox is already at
// maxQueueLen; the oldest entry is not evicted, the new one is dropped,
// mirroring an unbounded-memory-risk fix over the Rust reference's
// unbounded per-user Vec.
type ErrQueueFull struct {
	UserID string
}

func (e *ErrQueueFull) Error() string {
	return "pending queue full for user " + e.UserID
}

// Enqueue appends an envelope to a user's pending mailbox (FIFO), used
// when a message arrives for a user with no live connection to drain it.
func (s *State) Enqueue(userID string, env *wire.Envelope) error {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	q := s.pending[userID]
	if s.maxQueueLen > 0 && len(q) >= s.maxQueueLen {
		return &ErrQueueFull{UserID: userID}
	}
	s.pending[userID] = append(q, env)
	return nil
}

// Drain removes and returns all pending envelopes for a user, in FIFO
// order, for POLL / reconnect delivery.
func (s *State) Drain(userID string) []*wire.Envelope {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	q := s.pending[userID]
	if len(q) == 0 {
		return nil
	}
	delete(s.pending, userID)
	return q
}

// PendingLen reports how many envelopes are queued for a user.
func (s *State) PendingLen(userID string) int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending[userID])
}
