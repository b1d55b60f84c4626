package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamiewalsh/careerprep/internal/config"
	"github.com/jamiewalsh/careerprep/internal/interview"
	"github.com/jamiewalsh/careerprep/internal/llm"
	"github.com/jamiewalsh/careerprep/internal/quiz"
	"github.com/jamiewalsh/careerprep/internal/resume"
	"github.com/jamiewalsh/careerprep/internal/types"
)

func newGenerationTestServer(t *testing.T, client llm.Client) (*Server, string) {
	t.Helper()
	s := &Server{
		sessions:       interview.NewStore(),
		turnDriver:     interview.NewTurnDriver(client),
		analyzer:       resume.NewAnalyzer(client),
		quizzes:        quiz.NewAssembler(client, nil),
		jwtService:     NewJWTService(&config.JWTConfig{Secret: "test-secret", ExpirationHours: 1}),
		requestTimeout: 5 * time.Second,
	}
	token, err := s.jwtService.GenerateToken(uuid.New())
	require.NoError(t, err)
	return s, token
}

func postAuthed(t *testing.T, mux *http.ServeMux, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeResumeRequiresAuth(t *testing.T) {
	s, _ := newGenerationTestServer(t, &fakeLLM{})
	mux := s.routes()

	rec := postAuthed(t, mux, "/analysis", "", types.AnalyzeResumeRequest{
		ResumeText: "Five years of Go.",
		TargetRole: "Backend Engineer",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyzeResumeEndpoint(t *testing.T) {
	client := &fakeLLM{
		contentFn: func(string) (string, error) {
			return `{"match_score":78,"strengths":["Go experience"],"gaps":["no Kubernetes"],"suggestions":["add metrics work"],"summary":"Good fit."}`, nil
		},
	}
	s, token := newGenerationTestServer(t, client)
	mux := s.routes()

	rec := postAuthed(t, mux, "/analysis", token, types.AnalyzeResumeRequest{
		ResumeText: "Five years of Go.",
		TargetRole: "Backend Engineer",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis types.ResumeAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, 78, analysis.MatchScore)
	assert.Equal(t, "Good fit.", analysis.Summary)
}

func TestAnalyzeResumeMissingTargetRole(t *testing.T) {
	s, token := newGenerationTestServer(t, &fakeLLM{})
	mux := s.routes()

	rec := postAuthed(t, mux, "/analysis", token, map[string]string{
		"resume_text": "Five years of Go.",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "TargetRole")
}

func TestAssembleQuizEndpoint(t *testing.T) {
	client := &fakeLLM{
		contentFn: func(string) (string, error) {
			return `{"questions":[{"question":"What does a goroutine run on?","options":["an OS thread pool","the GPU"],"answer_index":0}]}`, nil
		},
	}
	s, token := newGenerationTestServer(t, client)
	mux := s.routes()

	rec := postAuthed(t, mux, "/quizzes", token, types.GenerateQuizRequest{Topic: "Go concurrency", Count: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	var got types.Quiz
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Go concurrency", got.Topic)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, 0, got.Questions[0].AnswerIndex)
}

func TestAssembleQuizProviderFailure(t *testing.T) {
	client := &fakeLLM{
		contentFn: func(string) (string, error) {
			return "", assert.AnError
		},
	}
	s, token := newGenerationTestServer(t, client)
	mux := s.routes()

	rec := postAuthed(t, mux, "/quizzes", token, types.GenerateQuizRequest{Topic: "Go concurrency"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
