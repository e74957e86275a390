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

// Package routing decides what happens to a DIRECT_MESSAGE or
// PUBLIC_CHANNEL_MESSAGE envelope once it reaches this node, restated
// from original_source/server/src/handlers/direct_message.rs,
// server_deliver.rs and public_channel_message.rs.
package routing

import (
	"fmt"

	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
)

// ErrUserNotFound is returned when a direct message targets a user_id
// with no UserHome entry at all, when the recipient's home server is not
// in the peer table, or when a SERVER_DELIVER names a user this node does
// not host. Transport handlers translate this into
// a USER_NOT_FOUND reply to the sender rather than treating it as an
// internal failure.
type ErrUserNotFound struct {
	UserID string
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("routing: user not found: %s", e.UserID)
}

// Router holds the mesh state and node identity needed to route direct
// and public-channel messages.
type Router struct {
	mesh *meshstate.State
	log  logger.Logger
}

// New builds a Router over mesh.
func New(mesh *meshstate.State, log logger.Logger) *Router {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Router{mesh: mesh, log: log}
}

func (r *Router) selfIdentifierString() string { return r.mesh.SelfServerID }
