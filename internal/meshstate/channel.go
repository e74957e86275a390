package meshstate

import "sync"

// ChannelMessage is one entry retained in the public channel's message
// ring buffer, carrying just enough to replay to a newly joined member.
type ChannelMessage struct {
	UserID  string
	Body    string
	Ts      int64
	Version uint64
}

// ChannelFileEvent is one FILE_START/FILE_CHUNK/FILE_END event retained
// in the public channel's file-event ring buffer.
type ChannelFileEvent struct {
	UserID  string
	Kind    string
	Data    []byte
	Ts      int64
	Version uint64
}

// PublicChannel is the single node-local public channel's membership and
// bounded history, restated from original_source/server/src/lib.rs's
// channel fields. Fan-out stays node-local in this version: a message
// posted on one node is not forwarded to other nodes' public channels.
type PublicChannel struct {
	mu       sync.RWMutex
	version  uint64
	members  map[string]struct{}
	ringSize int
	messages []ChannelMessage
	files    []ChannelFileEvent
}

func newPublicChannel(ringSize int) *PublicChannel {
	return &PublicChannel{
		members:  make(map[string]struct{}),
		ringSize: ringSize,
	}
}

// Channel returns the node's single public channel state.
func (s *State) Channel() *PublicChannel { return s.channel }

// Join adds a user to the channel's member set. Idempotent.
func (c *PublicChannel) Join(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[userID] = struct{}{}
}

// Leave removes a user from the channel's member set. Idempotent.
func (c *PublicChannel) Leave(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members, userID)
}

// IsMember reports whether a user is currently joined.
func (c *PublicChannel) IsMember(userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[userID]
	return ok
}

// Members returns a snapshot of the current member set.
func (c *PublicChannel) Members() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.members))
	for id := range c.members {
		out = append(out, id)
	}
	return out
}

// PostMessage appends a message to the ring buffer, bumping the channel
// version, and returns the assigned version number. Oldest entries are
// dropped once the buffer reaches ringSize.
func (c *PublicChannel) PostMessage(userID, body string, ts int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	msg := ChannelMessage{UserID: userID, Body: body, Ts: ts, Version: c.version}
	c.messages = appendBounded(c.messages, msg, c.ringSize)
	return c.version
}

// PostFileEvent appends a file-transfer event to the ring buffer under
// the same version counter as messages, bounding memory the same way.
func (c *PublicChannel) PostFileEvent(userID, kind string, data []byte, ts int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	evt := ChannelFileEvent{UserID: userID, Kind: kind, Data: data, Ts: ts, Version: c.version}
	c.files = appendBounded(c.files, evt, c.ringSize)
	return c.version
}

// Version returns the current channel version counter.
func (c *PublicChannel) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// MessagesSince returns every retained message with Version > since, for
// a client polling the channel for new activity. If since predates the
// oldest retained message, the full retained history is returned (the
// ring buffer has already dropped what came before).
func (c *PublicChannel) MessagesSince(since uint64) []ChannelMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ChannelMessage, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Version > since {
			out = append(out, m)
		}
	}
	return out
}

// FileEventsSince returns every retained file event with Version > since.
func (c *PublicChannel) FileEventsSince(since uint64) []ChannelFileEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ChannelFileEvent, 0, len(c.files))
	for _, f := range c.files {
		if f.Version > since {
			out = append(out, f)
		}
	}
	return out
}

// appendBounded appends v to a slice and trims from the front once it
// exceeds limit, implementing the ring buffer without a fixed-size array.
func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if limit > 0 && len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}
