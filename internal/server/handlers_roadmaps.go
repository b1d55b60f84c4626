package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jamiewalsh/careerprep/internal/db"
	"github.com/jamiewalsh/careerprep/internal/roadmap"
	"github.com/jamiewalsh/careerprep/internal/server/middleware"
	"github.com/jamiewalsh/careerprep/internal/types"
)

// handleGenerateRoadmap generates a learning roadmap from a topic, or from
// resume text when no topic is given, and stores it for the user.
func (s *Server) handleGenerateRoadmap(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.GenerateRoadmapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Topic == "" && req.ResumeText == "" {
		s.errorResponse(w, http.StatusBadRequest, "topic or resume_text is required")
		return
	}

	var generated *types.Roadmap
	if req.Topic != "" {
		generated, err = s.roadmaps.Generate(r.Context(), req.Topic, req.Level, req.Timeline)
	} else {
		generated, err = s.roadmaps.FromResume(r.Context(), req.ResumeText)
	}
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	roadmapID, err := s.db.CreateRoadmap(r.Context(), userID, generated)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to store roadmap")
		return
	}

	record, err := s.db.GetRoadmap(r.Context(), roadmapID)
	if err != nil || record == nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to retrieve stored roadmap")
		return
	}

	s.jsonResponse(w, http.StatusCreated, record)
}

// handleGenerateRoadmapStream generates and stores a roadmap while streaming
// progress over SSE, ending with the stored record.
func (s *Server) handleGenerateRoadmapStream(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.GenerateRoadmapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Topic == "" && req.ResumeText == "" {
		s.errorResponse(w, http.StatusBadRequest, "topic or resume_text is required")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	sse.WriteEvent("progress", map[string]string{"stage": "generating"}) //nolint:errcheck

	var generated *types.Roadmap
	if req.Topic != "" {
		generated, err = s.roadmaps.Generate(r.Context(), req.Topic, req.Level, req.Timeline)
	} else {
		generated, err = s.roadmaps.FromResume(r.Context(), req.ResumeText)
	}
	if err != nil {
		sse.WriteError(err.Error())
		return
	}

	sse.WriteEvent("progress", map[string]string{"stage": "storing"}) //nolint:errcheck

	roadmapID, err := s.db.CreateRoadmap(r.Context(), userID, generated)
	if err != nil {
		sse.WriteError("failed to store roadmap")
		return
	}

	sse.WriteEvent("roadmap", map[string]any{ //nolint:errcheck
		"id":      roadmapID,
		"roadmap": generated,
	})
	sse.WriteComplete(roadmapID.String(), "stored")
}

// handleListRoadmaps lists the authenticated user's stored roadmaps.
func (s *Server) handleListRoadmaps(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	records, err := s.db.ListRoadmapsByUser(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list roadmaps")
		return
	}

	s.jsonResponse(w, http.StatusOK, records)
}

// handleGetRoadmap returns one stored roadmap with its progress.
func (s *Server) handleGetRoadmap(w http.ResponseWriter, r *http.Request) {
	record, ok := s.ownedRoadmap(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}

// handleDeleteRoadmap deletes one stored roadmap.
func (s *Server) handleDeleteRoadmap(w http.ResponseWriter, r *http.Request) {
	record, ok := s.ownedRoadmap(w, r)
	if !ok {
		return
	}

	if err := s.db.DeleteRoadmap(r.Context(), record.ID); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to delete roadmap")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRoadmapProgress marks a roadmap step completed or not. The new value
// is applied optimistically and rolled back if persisting it fails, so the
// response always reflects what is stored.
func (s *Server) handleRoadmapProgress(w http.ResponseWriter, r *http.Request) {
	record, ok := s.ownedRoadmap(w, r)
	if !ok {
		return
	}

	var req types.RoadmapProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	progress := &roadmap.ProgressRecord{Completed: record.Completed}
	if err := s.progress.SetStep(r.Context(), record.ID, progress, req.StepIndex, req.Completed); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"id":        record.ID,
		"completed": progress.Completed,
	})
}

// ownedRoadmap loads the roadmap from the path ID and verifies ownership.
func (s *Server) ownedRoadmap(w http.ResponseWriter, r *http.Request) (*db.RoadmapRecord, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	roadmapID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid roadmap ID")
		return nil, false
	}

	record, err := s.db.GetRoadmap(r.Context(), roadmapID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get roadmap")
		return nil, false
	}
	if record == nil || record.UserID != userID {
		s.errorResponse(w, http.StatusNotFound, "roadmap not found")
		return nil, false
	}

	return record, true
}
