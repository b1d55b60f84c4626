package server

import (
	"encoding/json"
	"net/http"

	"github.com/jamiewalsh/careerprep/internal/types"
)

// handleAssembleQuiz assembles a quiz for a topic from stored reference
// questions topped up with generated ones.
func (s *Server) handleAssembleQuiz(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	quiz, err := s.quizzes.Assemble(r.Context(), req.Topic, req.Count)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, quiz)
}

// addQuizQuestionRequest is the request body for adding a reference question.
type addQuizQuestionRequest struct {
	Topic    string             `json:"topic"`
	Question types.QuizQuestion `json:"question"`
}

// handleAddQuizQuestion stores a curated reference question for a topic.
func (s *Server) handleAddQuizQuestion(w http.ResponseWriter, r *http.Request) {
	var req addQuizQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Topic == "" || req.Question.Question == "" {
		s.errorResponse(w, http.StatusBadRequest, "topic and question are required")
		return
	}
	if len(req.Question.Options) < 2 {
		s.errorResponse(w, http.StatusBadRequest, "question needs at least two options")
		return
	}
	if req.Question.AnswerIndex < 0 || req.Question.AnswerIndex >= len(req.Question.Options) {
		s.errorResponse(w, http.StatusBadRequest, "answer_index out of range")
		return
	}

	questionID, err := s.db.AddQuizQuestion(r.Context(), req.Topic, req.Question)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to store question")
		return
	}

	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": questionID.String()})
}
