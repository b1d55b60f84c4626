package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jamiewalsh/careerprep/internal/interview"
	"github.com/jamiewalsh/careerprep/internal/speech"
	"github.com/jamiewalsh/careerprep/internal/types"
)

// interviewView is the REST representation of a session.
type interviewView struct {
	ID         string                   `json:"id"`
	Stage      types.Stage              `json:"stage"`
	JobTitle   string                   `json:"job_title"`
	Transcript []types.ChatMessage      `json:"transcript"`
	LastError  string                   `json:"last_error,omitempty"`
	Feedback   *types.InterviewFeedback `json:"feedback,omitempty"`
}

func viewOf(sess *interview.Session) interviewView {
	view := interviewView{
		ID:         sess.ID,
		Stage:      sess.Stage(),
		JobTitle:   sess.JobTitle,
		Transcript: sess.Transcript(),
		LastError:  sess.LastError(),
	}
	if fb, ok := sess.Feedback(); ok {
		view.Feedback = &fb
	}
	return view
}

// handleCreateInterview creates a session in the setup stage. The session
// starts with detached audio and speech capabilities; a live gateway
// connection attaches real ones before the interview can start.
func (s *Server) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	var req types.CreateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	audio := interview.NewAudioBridge(s.synthesizer(), silentPlayer{})
	sess := interview.NewSession(req, s.turnDriver, audio, detachedRecognizer{})
	s.sessions.Add(sess)

	s.jsonResponse(w, http.StatusCreated, viewOf(sess))
}

// handleGetInterview returns the session's stage, transcript, and feedback.
func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, viewOf(sess))
}

// handleStartInterview moves the session into the interviewing stage and
// returns the interviewer's opening question.
func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var caps types.StartInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&caps); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := sess.Start(r.Context(), caps)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"message": msg,
		"stage":   sess.Stage(),
	})
}

// handleBeginListening starts one listening pass.
func (s *Server) handleBeginListening(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := sess.BeginListening(); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "listening"})
}

// handleCandidateTurn submits the candidate's transcript and returns the
// interviewer's reply.
func (s *Server) handleCandidateTurn(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req types.CandidateTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	resp, err := sess.SubmitCandidateTurn(r.Context(), req.Text)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleEndInterview ends the interview early and kicks off feedback
// generation. Feedback arrives asynchronously; poll or stream for it.
func (s *Server) handleEndInterview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := sess.ForceEnd(); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, map[string]any{"stage": sess.Stage()})
}

// handleGetFeedback returns the feedback, or 202 while it is still being
// generated.
func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	fb, ready := sess.Feedback()
	if !ready {
		s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "pending"})
		return
	}

	s.jsonResponse(w, http.StatusOK, fb)
}

// handleStreamFeedback streams the feedback over SSE as soon as it is ready.
func (s *Server) handleStreamFeedback(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	fb, err := sess.WaitFeedback(ctx)
	if err != nil {
		sse.WriteError("feedback not ready: " + err.Error())
		return
	}

	sse.WriteEvent("feedback", fb) //nolint:errcheck
	sse.WriteComplete(sess.ID, string(sess.Stage()))
}

// handleDeleteInterview discards the session.
func (s *Server) handleDeleteInterview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	sess.Close()
	s.sessions.Remove(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// session resolves the path ID to a live session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*interview.Session, bool) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return nil, false
	}
	return sess, true
}

// synthesizer returns the TTS client, or a stub that fails every request
// when no provider is configured so sessions degrade to text-only.
func (s *Server) synthesizer() interview.Synthesizer {
	if s.tts == nil {
		return unavailableSynth{}
	}
	return s.tts
}

type unavailableSynth struct{}

func (unavailableSynth) Synthesize(context.Context, string) (speech.Clip, error) {
	return speech.Clip{}, fmt.Errorf("no TTS provider configured")
}

// detachedRecognizer stands in until a live gateway connection attaches a
// real recognizer. It is never available, which keeps the start preconditions
// failing until the client connects.
type detachedRecognizer struct{}

func (detachedRecognizer) Available() bool { return false }
func (detachedRecognizer) Begin() error    { return fmt.Errorf("no live connection attached") }
func (detachedRecognizer) Cancel()         {}
func (detachedRecognizer) Close()          {}

// silentPlayer completes every playback immediately.
type silentPlayer struct{}

func (silentPlayer) Play(speech.Clip) (interview.Playback, error) {
	done := make(chan struct{})
	close(done)
	return silentPlayback{done: done}, nil
}

type silentPlayback struct {
	done chan struct{}
}

func (p silentPlayback) Done() <-chan struct{} { return p.done }
func (p silentPlayback) Stop()                 {}
