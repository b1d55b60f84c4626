package server

import (
	"encoding/json"
	"net/http"

	"github.com/jamiewalsh/careerprep/internal/server/middleware"
	"github.com/jamiewalsh/careerprep/internal/types"
)

// handleGeneratePortfolio generates a portfolio profile from resume text and
// stores it as the user's current portfolio.
func (s *Server) handleGeneratePortfolio(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.GeneratePortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	profile, err := s.portfolios.Generate(r.Context(), req.ResumeText)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if err := s.db.SavePortfolio(r.Context(), userID, profile); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to store portfolio")
		return
	}

	s.jsonResponse(w, http.StatusCreated, profile)
}

// handleGetPortfolio returns the user's stored portfolio profile.
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := s.db.GetPortfolioByUser(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get portfolio")
		return
	}
	if profile == nil {
		s.errorResponse(w, http.StatusNotFound, "portfolio not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, profile)
}
