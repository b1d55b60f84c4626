package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamiewalsh/careerprep/internal/config"
	"github.com/jamiewalsh/careerprep/internal/interview"
	"github.com/jamiewalsh/careerprep/internal/llm"
	"github.com/jamiewalsh/careerprep/internal/speech"
	"github.com/jamiewalsh/careerprep/internal/types"
)

// fakeLLM scripts chat and content responses for server tests.
type fakeLLM struct {
	chatFn    func(message string) (string, error)
	contentFn func(prompt string) (string, error)
}

func (f *fakeLLM) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	if f.contentFn != nil {
		return f.contentFn(prompt)
	}
	return `{"overall_feedback":"Solid answers.","strengths":["clear"],"areas_for_improvement":["detail"]}`, nil
}

func (f *fakeLLM) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	if f.contentFn != nil {
		return f.contentFn(prompt)
	}
	return "{}", nil
}

func (f *fakeLLM) GenerateChat(_ context.Context, _ string, _ []llm.ChatTurn, message string, _ llm.ModelTier) (string, error) {
	if f.chatFn != nil {
		return f.chatFn(message)
	}
	return "Tell me about yourself.", nil
}

func (f *fakeLLM) GetModel(llm.ModelTier) string { return "fake-model" }
func (f *fakeLLM) Close() error                  { return nil }

// grantedRecognizer reports availability so start preconditions pass.
type grantedRecognizer struct{}

func (grantedRecognizer) Available() bool { return true }
func (grantedRecognizer) Begin() error    { return nil }
func (grantedRecognizer) Cancel()         {}
func (grantedRecognizer) Close()          {}

func newInterviewTestServer(t *testing.T, client llm.Client) *Server {
	t.Helper()
	return &Server{
		sessions:       interview.NewStore(),
		turnDriver:     interview.NewTurnDriver(client),
		jwtService:     NewJWTService(&config.JWTConfig{Secret: "test-secret", ExpirationHours: 1}),
		requestTimeout: 5 * time.Second,
	}
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func getPath(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateInterviewValidation(t *testing.T) {
	s := newInterviewTestServer(t, &fakeLLM{})
	mux := s.routes()

	rec := postJSON(t, mux, "/interviews", map[string]string{"job_title": "Engineer"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ResumeText")
}

func TestCreateAndGetInterview(t *testing.T) {
	s := newInterviewTestServer(t, &fakeLLM{})
	mux := s.routes()

	rec := postJSON(t, mux, "/interviews", map[string]string{
		"job_title":   "Engineer",
		"resume_text": "Five years of Go.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created interviewView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, types.StageSetup, created.Stage)

	got := getPath(t, mux, "/interviews/"+created.ID)
	assert.Equal(t, http.StatusOK, got.Code)
}

func TestInterviewNotFound(t *testing.T) {
	s := newInterviewTestServer(t, &fakeLLM{})
	mux := s.routes()

	rec := getPath(t, mux, "/interviews/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartWithoutLiveConnection(t *testing.T) {
	s := newInterviewTestServer(t, &fakeLLM{})
	mux := s.routes()

	rec := postJSON(t, mux, "/interviews", map[string]string{
		"job_title":   "Engineer",
		"resume_text": "Five years of Go.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created interviewView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Capabilities granted, but no live gateway has attached a recognizer.
	start := postJSON(t, mux, "/interviews/"+created.ID+"/start", types.StartInterviewRequest{
		MicGranted:        true,
		SpeechRecognition: true,
	})
	assert.Equal(t, http.StatusBadRequest, start.Code)
	assert.Contains(t, start.Body.String(), "speech recognition")
}

func TestTurnBeforeStartConflicts(t *testing.T) {
	s := newInterviewTestServer(t, &fakeLLM{})
	mux := s.routes()

	rec := postJSON(t, mux, "/interviews", map[string]string{
		"job_title":   "Engineer",
		"resume_text": "Five years of Go.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created interviewView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	turn := postJSON(t, mux, "/interviews/"+created.ID+"/turns", map[string]string{"text": "Hello"})
	assert.Equal(t, http.StatusConflict, turn.Code)
}

// attachTestCapabilities wires a session with an always-available recognizer
// and instantly-completing audio, as a connected live client would.
func attachTestCapabilities(t *testing.T, sess *interview.Session) {
	t.Helper()
	audio := interview.NewAudioBridge(unavailableSynth{}, silentPlayer{})
	require.NoError(t, sess.AttachCapabilities(audio, grantedRecognizer{}))
}

func TestInterviewFullFlow(t *testing.T) {
	client := &fakeLLM{
		chatFn: func(message string) (string, error) {
			if strings.Contains(message, "wrap up") {
				return interview.TerminationPhrase, nil
			}
			return "Why do you want this role?", nil
		},
	}
	s := newInterviewTestServer(t, client)
	mux := s.routes()

	rec := postJSON(t, mux, "/interviews", map[string]string{
		"job_title":   "Engineer",
		"resume_text": "Five years of Go.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created interviewView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	sess, err := s.sessions.Get(created.ID)
	require.NoError(t, err)
	attachTestCapabilities(t, sess)

	start := postJSON(t, mux, "/interviews/"+created.ID+"/start", types.StartInterviewRequest{
		MicGranted:        true,
		SpeechRecognition: true,
	})
	require.Equal(t, http.StatusOK, start.Code)
	assert.Contains(t, start.Body.String(), "Tell me about yourself.")

	listen := postJSON(t, mux, "/interviews/"+created.ID+"/listen", nil)
	require.Equal(t, http.StatusOK, listen.Code)

	turn := postJSON(t, mux, "/interviews/"+created.ID+"/turns", map[string]string{
		"text": "I enjoy building backend systems.",
	})
	require.Equal(t, http.StatusOK, turn.Code)
	var resp types.InterviewTurnResponse
	require.NoError(t, json.Unmarshal(turn.Body.Bytes(), &resp))
	assert.False(t, resp.Finished)
	assert.Equal(t, types.RoleInterviewer, resp.Message.Role)

	// Feedback is not available mid-interview.
	fb := getPath(t, mux, "/interviews/"+created.ID+"/feedback")
	assert.Equal(t, http.StatusAccepted, fb.Code)

	final := postJSON(t, mux, "/interviews/"+created.ID+"/turns", map[string]string{
		"text": "Nothing further, let's wrap up.",
	})
	require.Equal(t, http.StatusOK, final.Code)
	require.NoError(t, json.Unmarshal(final.Body.Bytes(), &resp))
	assert.True(t, resp.Finished)

	_, err = sess.WaitFeedback(context.Background())
	require.NoError(t, err)

	fb = getPath(t, mux, "/interviews/"+created.ID+"/feedback")
	require.Equal(t, http.StatusOK, fb.Code)
	var feedback types.InterviewFeedback
	require.NoError(t, json.Unmarshal(fb.Body.Bytes(), &feedback))
	assert.Equal(t, "Solid answers.", feedback.OverallFeedback)

	transcriptView := getPath(t, mux, "/interviews/"+created.ID)
	require.Equal(t, http.StatusOK, transcriptView.Code)
	var view interviewView
	require.NoError(t, json.Unmarshal(transcriptView.Body.Bytes(), &view))
	assert.Equal(t, types.StageFeedback, view.Stage)
	assert.Len(t, view.Transcript, 5)
}

func TestForceEndAndStreamFeedback(t *testing.T) {
	s := newInterviewTestServer(t, &fakeLLM{})
	mux := s.routes()

	rec := postJSON(t, mux, "/interviews", map[string]string{
		"job_title":   "Engineer",
		"resume_text": "Five years of Go.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created interviewView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	sess, err := s.sessions.Get(created.ID)
	require.NoError(t, err)
	attachTestCapabilities(t, sess)

	start := postJSON(t, mux, "/interviews/"+created.ID+"/start", types.StartInterviewRequest{
		MicGranted:        true,
		SpeechRecognition: true,
	})
	require.Equal(t, http.StatusOK, start.Code)

	end := postJSON(t, mux, "/interviews/"+created.ID+"/end", nil)
	require.Equal(t, http.StatusAccepted, end.Code)

	stream := getPath(t, mux, "/interviews/"+created.ID+"/feedback/stream")
	require.Equal(t, http.StatusOK, stream.Code)
	body := stream.Body.String()
	assert.Contains(t, body, "event: feedback")
	assert.Contains(t, body, "event: complete")
	assert.Contains(t, body, "Solid answers.")
}

func TestDeleteInterview(t *testing.T) {
	s := newInterviewTestServer(t, &fakeLLM{})
	mux := s.routes()

	rec := postJSON(t, mux, "/interviews", map[string]string{
		"job_title":   "Engineer",
		"resume_text": "Five years of Go.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created interviewView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodDelete, "/interviews/"+created.ID, nil)
	del := httptest.NewRecorder()
	mux.ServeHTTP(del, req)
	require.Equal(t, http.StatusNoContent, del.Code)

	got := getPath(t, mux, "/interviews/"+created.ID)
	assert.Equal(t, http.StatusNotFound, got.Code)
}

var _ interview.Synthesizer = (*speech.Client)(nil)
