package httpapi

import (
	"net/http"

	"github.com/veilnet/veilnet/internal/apierr"
	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
)

type userHelloRequest struct {
	UserID string            `json:"user_id"`
	PubKey string            `json:"pubkey"`
	Meta   wire.UserMetadata `json:"meta"`
}

// handleUserHello answers POST /api/users/hello, restated from
// original_source/server/src/handlers/user_hello.rs's HTTP entry point.
func (s *Server) handleUserHello(w http.ResponseWriter, r *http.Request) {
	var req userHelloRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.PubKey == "" {
		s.writeError(w, apierr.NewClientError(wire.ErrCodePayloadExtraction, "user_id and pubkey are required"))
		return
	}
	key, err := nodekey.LoadPublicKeyBase64URL(req.PubKey)
	if err != nil {
		s.writeError(w, apierr.NewClientError(wire.ErrCodePayloadExtraction, "invalid pubkey: %v", err))
		return
	}

	if err := s.presence.HandleUserHello(r.Context(), req.UserID, key, req.Meta, s.now); err != nil {
		s.writeError(w, apierr.NewServerError(err))
		return
	}
	s.writeStatusOK(w)
}

type userIDRequest struct {
	UserID string `json:"user_id"`
}

// handleHeartbeat answers POST /api/users/heartbeat.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req userIDRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !s.presence.HandleHeartbeat(req.UserID) {
		s.writeError(w, apierr.NewClientError(wire.ErrCodeUserNotFound, "unknown local user: %s", req.UserID))
		return
	}
	s.writeStatusOK(w)
}

type pollResponse struct {
	Envelopes []*wire.Envelope `json:"envelopes"`
}

// handlePoll answers POST /api/users/poll, draining Pending[user_id].
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	var req userIDRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, pollResponse{Envelopes: s.mesh.Drain(req.UserID)})
}

// handleGetPubkey answers GET /api/users/pubkey/{user_id}, recovered from
// original_source/ (not present in the distilled spec but exercised by
// both the reference's HTTP handlers and message verification flows).
func (s *Server) handleGetPubkey(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	key, ok := s.mesh.UserPubKey(userID)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, wire.ErrorPayload{
			Code:    wire.ErrCodeUserNotFound,
			Message: "unknown user: " + userID,
		})
		return
	}
	pub, err := key.PublicKeyBase64URL()
	if err != nil {
		s.writeError(w, apierr.NewServerError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, wire.GetPubkeyPayload{UserID: userID, PubKey: pub})
}

// handleListUsers answers GET /api/users, the LIST_USERS directory query
// recovered from original_source/.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var out []wire.ClientInfo
	for _, userID := range s.mesh.ListUsers() {
		home, ok := s.mesh.UserHome(userID)
		if !ok {
			continue
		}
		var pub string
		if key, ok := s.mesh.UserPubKey(userID); ok {
			pub, _ = key.PublicKeyBase64URL()
		}
		out = append(out, wire.ClientInfo{UserID: userID, ServerID: home, PubKey: pub})
	}
	s.writeJSON(w, http.StatusOK, wire.ListUsersPayload{Users: out})
}

// handleNotImplemented answers the stubbed /api/users/login and
// /api/users/register routes: this node has no account system.
func (s *Server) handleNotImplemented(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, wire.StatusResponse{
		Status:  wire.StatusNotImplemented,
		Message: "no account system on this node",
	})
}
