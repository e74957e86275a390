package httpapi

import (
	"net/http"
	"strconv"

	"github.com/veilnet/veilnet/internal/apierr"
	"github.com/veilnet/veilnet/pkg/wire"
)

// handleChannelJoin answers POST /api/channel/join.
func (s *Server) handleChannelJoin(w http.ResponseWriter, r *http.Request) {
	var req wire.ChannelJoinPayload
	if !s.decodeJSON(w, r, &req) {
		return
	}
	env, err := s.buildChannelEnvelope(wire.PublicChannelJoin, req.UserID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.routing.HandleChannelJoin(env); err != nil {
		s.writeError(w, apierr.NewServerError(err))
		return
	}
	s.writeStatusOK(w)
}

// handleChannelLeave answers POST /api/channel/leave.
func (s *Server) handleChannelLeave(w http.ResponseWriter, r *http.Request) {
	var req wire.ChannelLeavePayload
	if !s.decodeJSON(w, r, &req) {
		return
	}
	env, err := s.buildChannelEnvelope(wire.PublicChannelLeave, req.UserID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.routing.HandleChannelLeave(env); err != nil {
		s.writeError(w, apierr.NewServerError(err))
		return
	}
	s.writeStatusOK(w)
}

// handleChannelMessage answers POST /api/channel/message.
func (s *Server) handleChannelMessage(w http.ResponseWriter, r *http.Request) {
	var req wire.ChannelMessagePayload
	if !s.decodeJSON(w, r, &req) {
		return
	}
	env, err := s.buildChannelEnvelope(wire.PublicChannelMessage, req.From, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.routing.HandleChannelMessage(env); err != nil {
		s.writeError(w, apierr.NewClientError(wire.ErrCodeInvalidPayloadType, "%v", err))
		return
	}
	s.writeStatusOK(w)
}

type channelPollResponse struct {
	Messages []channelMessageView `json:"messages"`
	Version  uint64               `json:"version"`
}

type channelMessageView struct {
	UserID  string `json:"user_id"`
	Body    string `json:"body"`
	Ts      int64  `json:"ts"`
	Version uint64 `json:"version"`
}

// handleChannelPoll answers GET /api/channel/poll?since=N, draining the
// channel's message ring for whatever a caller hasn't seen yet.
func (s *Server) handleChannelPoll(w http.ResponseWriter, r *http.Request) {
	since := parseSince(r)
	ch := s.mesh.Channel()
	msgs := ch.MessagesSince(since)

	out := make([]channelMessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, channelMessageView{UserID: m.UserID, Body: m.Body, Ts: m.Ts, Version: m.Version})
	}
	s.writeJSON(w, http.StatusOK, channelPollResponse{Messages: out, Version: ch.Version()})
}

func parseSince(r *http.Request) uint64 {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return 0
	}
	since, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return since
}

// buildChannelEnvelope wraps a channel operation's payload as an envelope
// addressed to the broadcast identifier, the shape internal/routing's
// channel handlers expect regardless of which transport they arrived on.
func (s *Server) buildChannelEnvelope(typ wire.PayloadType, fromUserID string, payload any) (*wire.Envelope, error) {
	from, err := wire.ParseIdentifier(fromUserID)
	if err != nil {
		return nil, apierr.NewClientError(wire.ErrCodePayloadExtraction, "invalid user_id: %v", err)
	}
	env, err := wire.NewEnvelope(typ, from, wire.Broadcast, s.now(), payload)
	if err != nil {
		return nil, apierr.NewServerError(err)
	}
	return env, nil
}
