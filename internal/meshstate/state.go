// Copyright (C) 2025 veilnet
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package meshstate holds every in-memory table a node keeps: local users,
// known peers, the user_home routing table, cached user public keys, per
// user pending mailboxes, and public channel state. Restated from
// original_source/server/src/lib.rs's AppState in the teacher's
// mutex-guarded-table idiom (pkg/agent/session).
//
// Lock order, honored by every caller that must hold more than one:
// Peers -> UserHome -> UserPubKeys -> LocalUsers -> Pending -> Channel.
// No table lock is ever held across a channel send or network I/O call.
package meshstate

import (
	"sync"
	"time"

	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
)

// LocalServerID is the sentinel value stored in UserHome for users
// connected directly to this node, matching the Rust reference's use of
// the literal "local".
const LocalServerID = "local"

// LocalUser is a user with a live connection to this node.
type LocalUser struct {
	UserID   string
	PubKey   *nodekey.KeyPair
	LastSeen time.Time
}

// PeerLink is one federated connection to another node: its pinned
// identity plus the outbound send queue a single writer goroutine drains.
type PeerLink struct {
	ServerID string
	Host     string
	Port     int
	PubKey   *nodekey.KeyPair
	Outbox   chan *wire.Envelope
	Connected bool
}

// State bundles every node-state table behind its own mutex.
type State struct {
	SelfServerID string
	SelfKey      *nodekey.KeyPair

	peersMu sync.RWMutex
	peers   map[string]*PeerLink

	userHomeMu sync.RWMutex
	userHome   map[string]string // user_id -> "local" | server_id

	pubKeysMu sync.RWMutex
	userPubKeys map[string]*nodekey.KeyPair

	localUsersMu sync.RWMutex
	localUsers   map[string]*LocalUser

	pendingMu   sync.Mutex
	pending     map[string][]*wire.Envelope
	maxQueueLen int

	channel *PublicChannel
}

// New creates an empty State for a node identified by selfServerID/selfKey.
func New(selfServerID string, selfKey *nodekey.KeyPair, maxQueueLen, channelRingSize int) *State {
	return &State{
		SelfServerID: selfServerID,
		SelfKey:      selfKey,
		peers:        make(map[string]*PeerLink),
		userHome:     make(map[string]string),
		userPubKeys:  make(map[string]*nodekey.KeyPair),
		localUsers:   make(map[string]*LocalUser),
		pending:      make(map[string][]*wire.Envelope),
		maxQueueLen:  maxQueueLen,
		channel:      newPublicChannel(channelRingSize),
	}
}
