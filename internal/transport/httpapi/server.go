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

// Package httpapi exposes the client-facing route table from
// original_source/server/src/transport.rs's app_router() over plain JSON,
// adapted from the teacher's pkg/agent/transport/http server idiom (one
// MessageHandler-style function per concern instead of one do-everything
// dispatcher). Every route accepts/returns JSON and the whole mux is
// wrapped in a permissive CORS handler, mirroring the reference's
// tower_http::cors::Any layer.
package httpapi

import (
	"net/http"
	"time"

	"github.com/veilnet/veilnet/health"
	"github.com/veilnet/veilnet/internal/federation"
	"github.com/veilnet/veilnet/internal/filerelay"
	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/metrics"
	"github.com/veilnet/veilnet/internal/presence"
	"github.com/veilnet/veilnet/internal/routing"
)

// Server wires the node's domain packages to HTTP handlers. It holds no
// state of its own beyond what's needed to translate requests into the
// same envelope-shaped calls the WebSocket peer link makes.
type Server struct {
	mesh     *meshstate.State
	presence *presence.Presence
	routing  *routing.Router
	filerel  *filerelay.Relay
	fed      *federation.Federation
	health   *health.HealthChecker
	log      logger.Logger
	now      func() int64
}

// New builds a Server. fed may be nil for a standalone node that never
// bootstraps; health may be nil, in which case /healthz always reports
// status "ok" instead of the checker's overall status.
func New(mesh *meshstate.State, pres *presence.Presence, rt *routing.Router, rel *filerelay.Relay, fed *federation.Federation, hc *health.HealthChecker, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Server{
		mesh:     mesh,
		presence: pres,
		routing:  rt,
		filerel:  rel,
		fed:      fed,
		health:   hc,
		log:      log,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// Handler builds the full route table as an http.Handler, CORS-wrapped.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/users/hello", s.handleUserHello)
	mux.HandleFunc("POST /api/users/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("POST /api/users/poll", s.handlePoll)
	mux.HandleFunc("GET /api/users/pubkey/{user_id}", s.handleGetPubkey)
	mux.HandleFunc("GET /api/users", s.handleListUsers)
	mux.HandleFunc("POST /api/users/login", s.handleNotImplemented)
	mux.HandleFunc("POST /api/users/register", s.handleNotImplemented)

	mux.HandleFunc("POST /api/messages/direct", s.handleDirectMessage)

	mux.HandleFunc("POST /api/channel/join", s.handleChannelJoin)
	mux.HandleFunc("POST /api/channel/leave", s.handleChannelLeave)
	mux.HandleFunc("POST /api/channel/message", s.handleChannelMessage)
	mux.HandleFunc("GET /api/channel/poll", s.handleChannelPoll)

	mux.HandleFunc("POST /api/files/start", s.handleFileStart)
	mux.HandleFunc("POST /api/files/chunk", s.handleFileChunk)
	mux.HandleFunc("POST /api/files/end", s.handleFileEnd)
	mux.HandleFunc("GET /api/files/events", s.handleFileEvents)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())

	return corsMiddleware(mux)
}

// corsMiddleware mirrors original_source/server/src/transport.rs's wide
// open CORS layer: any origin, method and header is allowed.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
