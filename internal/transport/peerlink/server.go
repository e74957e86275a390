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

package peerlink

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/veilnet/veilnet/internal/federation"
	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/presence"
	"github.com/veilnet/veilnet/internal/routing"
	"github.com/veilnet/veilnet/pkg/wire"
)

const outboxSize = 64

// Dispatcher accepts inbound /peer connections and routes the frames
// they carry to the domain package that owns each SERVER_* and gossip
// payload type, adapted from the teacher's WSServer: one upgrader plus a
// per-connection read loop, but dispatching by wire.PayloadType instead
// of calling a single MessageHandler. The same dispatch loop also drives
// outbound connections this node dials via MaintainOutbound, so a peer
// reached only through bootstrap/announce (never one that joined us) still
// gets its frames routed and its Outbox drained.
type Dispatcher struct {
	mesh     *meshstate.State
	fed      *federation.Federation
	presence *presence.Presence
	routing  *routing.Router
	log      logger.Logger
	now      func() int64

	upgrader websocket.Upgrader

	linkingMu sync.Mutex
	linking   map[string]bool
}

// NewDispatcher builds a Dispatcher. fed may be nil on a node that never
// accepts inbound joins (it then rejects SERVER_HELLO_JOIN).
func NewDispatcher(mesh *meshstate.State, fed *federation.Federation, pres *presence.Presence, rt *routing.Router, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Dispatcher{
		mesh:     mesh,
		fed:      fed,
		presence: pres,
		routing:  rt,
		log:      log,
		now:      func() int64 { return time.Now().UnixMilli() },
		linking:  make(map[string]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: Implement proper origin checking in production
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler upgrades and serves the /peer endpoint.
func (d *Dispatcher) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := d.upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "websocket upgrade failed: "+err.Error(), http.StatusBadRequest)
			return
		}
		conn := newConn(ws)
		defer conn.Close()
		d.serve(r.Context(), conn)
	})
}

// serve runs the read loop for one peer connection, inbound or outbound,
// until it closes or ctx is cancelled. A malformed or unroutable frame is
// logged and dropped; it never tears down the connection.
func (d *Dispatcher) serve(ctx context.Context, conn federation.PeerConn) {
	var writerCancel context.CancelFunc
	defer func() {
		if writerCancel != nil {
			writerCancel()
		}
	}()

	for {
		env, err := conn.Recv(ctx)
		if err != nil {
			return
		}

		switch env.Type {
		case wire.ServerHelloJoin:
			if d.fed == nil {
				d.log.Warn("peerlink: rejecting SERVER_HELLO_JOIN, node does not accept inbound joins")
				continue
			}
			welcome, err := d.fed.HandleHelloJoin(env, d.now)
			if err != nil {
				d.log.Warn("peerlink: SERVER_HELLO_JOIN rejected", logger.Error(err))
				continue
			}
			if err := conn.Send(welcome); err != nil {
				d.log.Warn("peerlink: failed to send SERVER_WELCOME", logger.Error(err))
				return
			}
			writerCancel = d.startWriterFor(ctx, conn, env.From.String())

		case wire.ServerAnnounce:
			if d.fed == nil {
				continue
			}
			if err := d.fed.HandleAnnounce(env); err != nil {
				d.log.Warn("peerlink: SERVER_ANNOUNCE rejected", logger.Error(err))
			}

		case wire.Heartbeat:
			if !d.mesh.SetPeerConnected(env.From.String(), true) {
				d.log.Warn("peerlink: heartbeat from unknown peer", logger.String("server_id", env.From.String()))
			}

		case wire.ServerDeliver:
			if err := d.routing.HandleServerDeliver(env); err != nil {
				d.log.Warn("peerlink: SERVER_DELIVER failed", logger.Error(err))
			}

		case wire.UserAdvertise:
			if err := d.presence.HandleUserAdvertise(env); err != nil {
				d.log.Warn("peerlink: USER_ADVERTISE failed", logger.Error(err))
			}

		case wire.UserRemove:
			if err := d.presence.HandleUserRemove(env); err != nil {
				d.log.Warn("peerlink: USER_REMOVE failed", logger.Error(err))
			}

		default:
			d.log.Warn("peerlink: unhandled frame type", logger.String("type", env.Type.String()))
		}
	}
}

// startWriterFor spins up the Outbox-draining goroutine for a peer that
// just joined through this connection, returning a cancel func the
// caller must invoke once the connection ends.
func (d *Dispatcher) startWriterFor(parent context.Context, conn federation.PeerConn, serverID string) context.CancelFunc {
	peer, ok := d.mesh.Peer(serverID)
	if !ok {
		return func() {}
	}
	if _, ok := d.mesh.EnsureOutbox(serverID, outboxSize); !ok {
		return func() {}
	}
	wctx, cancel := context.WithCancel(parent)
	go RunWriter(wctx, d.mesh, conn, peer, d.log)
	return cancel
}

// MaintainOutbound periodically dials any known peer that has no live
// Outbox yet — a server reached only through this node's own bootstrap or
// announce fan-out, which never got a writer goroutine the way an inbound
// SERVER_HELLO_JOIN does — and serves that connection through the same
// dispatch loop as an inbound link. It runs until ctx is cancelled.
func (d *Dispatcher) MaintainOutbound(ctx context.Context, dialer federation.Dialer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dialUnlinkedPeers(ctx, dialer)
		}
	}
}

func (d *Dispatcher) dialUnlinkedPeers(ctx context.Context, dialer federation.Dialer) {
	for _, peer := range d.mesh.Peers() {
		if peer.Outbox != nil {
			continue
		}
		if !d.tryLock(peer.ServerID) {
			continue
		}
		go d.linkOutbound(ctx, dialer, peer)
	}
}

func (d *Dispatcher) tryLock(serverID string) bool {
	d.linkingMu.Lock()
	defer d.linkingMu.Unlock()
	if d.linking[serverID] {
		return false
	}
	d.linking[serverID] = true
	return true
}

func (d *Dispatcher) unlock(serverID string) {
	d.linkingMu.Lock()
	defer d.linkingMu.Unlock()
	delete(d.linking, serverID)
}

func (d *Dispatcher) linkOutbound(ctx context.Context, dialer federation.Dialer, peer *meshstate.PeerLink) {
	defer d.unlock(peer.ServerID)

	conn, err := dialer.Dial(ctx, peer.Host, peer.Port)
	if err != nil {
		d.log.Warn("peerlink: outbound link dial failed",
			logger.String("server_id", peer.ServerID), logger.Error(err))
		return
	}
	defer conn.Close()

	writerCancel := d.startWriterFor(ctx, conn, peer.ServerID)
	defer writerCancel()

	d.serve(ctx, conn)
	d.mesh.SetPeerConnected(peer.ServerID, false)
}
