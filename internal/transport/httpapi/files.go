package httpapi

import (
	"net/http"

	"github.com/veilnet/veilnet/internal/apierr"
	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/pkg/wire"
)

// handleFileStart answers POST /api/files/start.
func (s *Server) handleFileStart(w http.ResponseWriter, r *http.Request) {
	var req wire.FileStartPayload
	if !s.decodeJSON(w, r, &req) {
		return
	}
	env, err := s.buildFileEnvelope(wire.FileStart, req.Sender, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.filerel.HandleFileStart(env); err != nil {
		s.writeError(w, apierr.NewServerError(err))
		return
	}
	s.writeStatusOK(w)
}

// handleFileChunk answers POST /api/files/chunk.
func (s *Server) handleFileChunk(w http.ResponseWriter, r *http.Request) {
	var req wire.FileChunkPayload
	if !s.decodeJSON(w, r, &req) {
		return
	}
	env, err := s.buildFileEnvelope(wire.FileChunk, "", req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.filerel.HandleFileChunk(env); err != nil {
		s.writeError(w, apierr.NewServerError(err))
		return
	}
	s.writeStatusOK(w)
}

// handleFileEnd answers POST /api/files/end.
func (s *Server) handleFileEnd(w http.ResponseWriter, r *http.Request) {
	var req wire.FileEndPayload
	if !s.decodeJSON(w, r, &req) {
		return
	}
	env, err := s.buildFileEnvelope(wire.FileEnd, "", req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.filerel.HandleFileEnd(env); err != nil {
		s.writeError(w, apierr.NewServerError(err))
		return
	}
	s.writeStatusOK(w)
}

type fileEventsResponse struct {
	Envelopes []*wire.Envelope `json:"envelopes"`
	Version   uint64           `json:"version,omitempty"`
}

// handleFileEvents answers GET /api/files/events. A caller polling for a
// direct transfer passes user_id and drains that user's mailbox, same as
// /api/users/poll but with non-file envelopes put back so a later POLL
// still sees them; a caller polling the public channel passes since and
// reads the channel's bounded file-event ring instead.
func (s *Server) handleFileEvents(w http.ResponseWriter, r *http.Request) {
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		s.writeJSON(w, http.StatusOK, fileEventsResponse{Envelopes: s.drainFileEvents(userID)})
		return
	}

	since := parseSince(r)
	ch := s.mesh.Channel()
	events := ch.FileEventsSince(since)
	envs := make([]*wire.Envelope, 0, len(events))
	for _, evt := range events {
		envs = append(envs, &wire.Envelope{
			Type:    fileEventKindToType(evt.Kind),
			From:    wire.Broadcast,
			To:      wire.Broadcast,
			Ts:      evt.Ts,
			Payload: evt.Data,
		})
	}
	s.writeJSON(w, http.StatusOK, fileEventsResponse{Envelopes: envs, Version: ch.Version()})
}

func (s *Server) drainFileEvents(userID string) []*wire.Envelope {
	drained := s.mesh.Drain(userID)
	var fileEvents, rest []*wire.Envelope
	for _, env := range drained {
		switch {
		case env.Type.Equal(wire.FileStart), env.Type.Equal(wire.FileChunk), env.Type.Equal(wire.FileEnd):
			fileEvents = append(fileEvents, env)
		default:
			rest = append(rest, env)
		}
	}
	for _, env := range rest {
		if err := s.mesh.Enqueue(userID, env); err != nil {
			s.log.Warn("httpapi: failed to requeue non-file envelope after files/events poll",
				logger.String("user_id", userID), logger.Error(err))
		}
	}
	return fileEvents
}

// fileEventKindToType maps the relay's internal "start"/"chunk"/"end" tag
// (set in internal/filerelay.deliver) back to a wire.PayloadType for
// re-exposing a channel file event over HTTP.
func fileEventKindToType(kind string) wire.PayloadType {
	switch kind {
	case "start":
		return wire.FileStart
	case "end":
		return wire.FileEnd
	default:
		return wire.FileChunk
	}
}

func (s *Server) buildFileEnvelope(typ wire.PayloadType, fromUserID string, payload any) (*wire.Envelope, error) {
	from := wire.Broadcast
	if fromUserID != "" {
		parsed, err := wire.ParseIdentifier(fromUserID)
		if err != nil {
			return nil, apierr.NewClientError(wire.ErrCodePayloadExtraction, "invalid sender: %v", err)
		}
		from = parsed
	}
	env, err := wire.NewEnvelope(typ, from, wire.Broadcast, s.now(), payload)
	if err != nil {
		return nil, apierr.NewServerError(err)
	}
	return env, nil
}
