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

// Package peerlink carries the server-to-server federation link over
// gorilla/websocket, adapted from the teacher's pkg/agent/transport/
// websocket client/server pair: the same Upgrader/Dialer/ReadJSON/
// WriteJSON idiom, rewritten around *wire.Envelope instead of
// transport.SecureMessage and with no request/response correlation
// (federation envelopes are fire-and-forget or answered by a later frame
// on the same connection, never matched by message ID).
package peerlink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/veilnet/veilnet/pkg/wire"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// Conn wraps one websocket connection to a federated peer, implementing
// internal/federation.PeerConn.
type Conn struct {
	ws           *websocket.Conn
	writeMu      sync.Mutex
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, readTimeout: defaultReadTimeout, writeTimeout: defaultWriteTimeout}
}

// Send writes one envelope as a JSON text frame.
func (c *Conn) Send(env *wire.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("peerlink: set write deadline: %w", err)
	}
	return c.ws.WriteJSON(env)
}

// Recv blocks for the next envelope, or returns ctx.Err() if ctx is
// already done before a frame arrives. gorilla/websocket has no native
// context support, so cancellation is enforced by checking ctx up front
// and relying on the read deadline to bound the blocking call itself.
func (c *Conn) Recv(ctx context.Context) (*wire.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.ws.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return nil, fmt.Errorf("peerlink: set read deadline: %w", err)
	}
	var env wire.Envelope
	if err := c.ws.ReadJSON(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
