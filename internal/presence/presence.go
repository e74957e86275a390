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

// Package presence tracks which users are alive and where they live,
// restated from original_source/server/src/handlers/user_hello.rs,
// user_advertise.rs, user_remove.rs and heartbeat.rs. A local user's
// presence is gossiped to the mesh as USER_ADVERTISE on hello and
// USER_REMOVE on disconnect or staleness sweep.
package presence

import (
	"context"

	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/metrics"
	"github.com/veilnet/veilnet/pkg/wire"
)

// Broadcaster fans an envelope out to every known peer, best-effort. It is
// satisfied by (*internal/federation.Federation).Broadcast; presence never
// imports federation directly so the two packages can be tested and
// reasoned about independently.
type Broadcaster interface {
	Broadcast(ctx context.Context, env *wire.Envelope) error
}

// Presence wires the mesh state table to the gossip broadcaster and
// signing key needed to announce and retract local user presence.
type Presence struct {
	mesh      *meshstate.State
	broadcast Broadcaster
	log       logger.Logger
}

// New builds a Presence tracker over mesh, gossiping through broadcast.
func New(mesh *meshstate.State, broadcast Broadcaster, log logger.Logger) *Presence {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Presence{mesh: mesh, broadcast: broadcast, log: log}
}

func (p *Presence) selfIdentifier() (wire.Identifier, error) {
	return wire.ParseIdentifier(p.mesh.SelfServerID)
}

func (p *Presence) gossip(ctx context.Context, env *wire.Envelope) {
	if p.broadcast == nil {
		return
	}
	if err := p.broadcast.Broadcast(ctx, env); err != nil {
		p.log.Warn("presence: gossip broadcast failed", logger.Error(err))
	}
}

func recordSweepRemovals(n int) {
	if n <= 0 {
		return
	}
	metrics.SweepRemoved.Add(float64(n))
	metrics.GetGlobalCollector().RecordSweepRemoval(n)
}
