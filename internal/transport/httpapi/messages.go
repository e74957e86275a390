package httpapi

import (
	"errors"
	"net/http"

	"github.com/veilnet/veilnet/internal/apierr"
	"github.com/veilnet/veilnet/internal/routing"
	"github.com/veilnet/veilnet/pkg/wire"
)

type directMessageRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Ciphertext string `json:"ciphertext"`
	SenderName string `json:"sender"`
	SenderPub  string `json:"sender_pub"`
	ContentSig string `json:"content_sig"`
}

// handleDirectMessage answers POST /api/messages/direct, building a
// DIRECT_MESSAGE envelope from the request and handing it to
// internal/routing exactly as the peer link would for a forwarded one.
func (s *Server) handleDirectMessage(w http.ResponseWriter, r *http.Request) {
	var req directMessageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	from, err := wire.ParseIdentifier(req.From)
	if err != nil {
		s.writeError(w, apierr.NewClientError(wire.ErrCodePayloadExtraction, "invalid from: %v", err))
		return
	}
	to, err := wire.ParseIdentifier(req.To)
	if err != nil {
		s.writeError(w, apierr.NewClientError(wire.ErrCodePayloadExtraction, "invalid to: %v", err))
		return
	}

	env, err := wire.NewEnvelope(wire.DirectMessage, from, to, s.now(), wire.DirectMessagePayload{
		Ciphertext: req.Ciphertext,
		SenderName: req.SenderName,
		SenderPub:  req.SenderPub,
		ContentSig: req.ContentSig,
	})
	if err != nil {
		s.writeError(w, apierr.NewServerError(err))
		return
	}

	if err := s.routing.HandleDirectMessage(env); err != nil {
		var notFound *routing.ErrUserNotFound
		if errors.As(err, &notFound) {
			s.writeJSON(w, http.StatusNotFound, wire.UserNotFoundPayload{UserID: notFound.UserID})
			return
		}
		s.writeError(w, apierr.NewServerError(err))
		return
	}
	s.writeStatusOK(w)
}
