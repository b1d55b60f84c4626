package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// synthesizeRequest is the request body for one-off speech synthesis.
type synthesizeRequest struct {
	Text string `json:"text"`
}

// handleSynthesize converts text to speech and returns the raw audio bytes.
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if s.tts == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "no TTS provider configured")
		return
	}

	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.errorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	clip, err := s.tts.Synthesize(r.Context(), req.Text)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", clip.MIME)
	w.WriteHeader(http.StatusOK)
	w.Write(clip.Data) //nolint:errcheck
}
