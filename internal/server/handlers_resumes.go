package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jamiewalsh/careerprep/internal/db"
	"github.com/jamiewalsh/careerprep/internal/server/middleware"
)

// resumeRequest is the request body for creating or updating a stored resume.
type resumeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// handleCreateResume stores a new resume for the authenticated user.
func (s *Server) handleCreateResume(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.Content == "" {
		s.errorResponse(w, http.StatusBadRequest, "title and content are required")
		return
	}

	resumeID, err := s.db.CreateResume(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create resume")
		return
	}

	resume, err := s.db.GetResume(r.Context(), resumeID)
	if err != nil || resume == nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to retrieve created resume")
		return
	}

	s.jsonResponse(w, http.StatusCreated, resume)
}

// handleListResumes lists the authenticated user's resumes, newest first.
func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resumes, err := s.db.ListResumesByUser(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list resumes")
		return
	}

	s.jsonResponse(w, http.StatusOK, resumes)
}

// handleGetResume returns one of the authenticated user's resumes.
func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	resume, ok := s.ownedResume(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, resume)
}

// handleUpdateResume replaces a resume's title and content.
func (s *Server) handleUpdateResume(w http.ResponseWriter, r *http.Request) {
	resume, ok := s.ownedResume(w, r)
	if !ok {
		return
	}

	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.Content == "" {
		s.errorResponse(w, http.StatusBadRequest, "title and content are required")
		return
	}

	if err := s.db.UpdateResume(r.Context(), resume.ID, req.Title, req.Content); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to update resume")
		return
	}

	updated, err := s.db.GetResume(r.Context(), resume.ID)
	if err != nil || updated == nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to retrieve updated resume")
		return
	}

	s.jsonResponse(w, http.StatusOK, updated)
}

// handleDeleteResume deletes one of the authenticated user's resumes.
func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	resume, ok := s.ownedResume(w, r)
	if !ok {
		return
	}

	if err := s.db.DeleteResume(r.Context(), resume.ID); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to delete resume")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedResume loads the resume from the path ID and verifies it belongs to
// the authenticated user. A resume owned by someone else reads as not found.
func (s *Server) ownedResume(w http.ResponseWriter, r *http.Request) (*db.Resume, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	resumeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid resume ID")
		return nil, false
	}

	resume, err := s.db.GetResume(r.Context(), resumeID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get resume")
		return nil, false
	}
	if resume == nil || resume.UserID != userID {
		s.errorResponse(w, http.StatusNotFound, "resume not found")
		return nil, false
	}

	return resume, true
}
