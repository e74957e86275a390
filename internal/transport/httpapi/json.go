package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/veilnet/veilnet/internal/apierr"
	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/pkg/wire"
)

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, apierr.NewClientError(wire.ErrCodePayloadExtraction, "invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("httpapi: failed to encode response", logger.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	payload, status := apierr.ToPayload(err)
	s.writeJSON(w, status, payload)
}

func (s *Server) writeStatusOK(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, wire.StatusResponse{Status: wire.StatusOK})
}
