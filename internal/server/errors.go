// Package server provides the HTTP REST API and live interview gateway for
// the career preparation service.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jamiewalsh/careerprep/internal/interview"
	"github.com/jamiewalsh/careerprep/internal/portfolio"
	"github.com/jamiewalsh/careerprep/internal/quiz"
	"github.com/jamiewalsh/careerprep/internal/resume"
	"github.com/jamiewalsh/careerprep/internal/roadmap"
	"github.com/jamiewalsh/careerprep/internal/speech"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrPasswordMismatch indicates current password is incorrect
type ErrPasswordMismatch struct{}

func (e *ErrPasswordMismatch) Error() string {
	return "current password is incorrect"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a requested resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	if errors.Is(err, interview.ErrSessionNotFound) {
		return http.StatusNotFound
	}
	switch err.(type) {
	case *ErrEmailAlreadyExists:
		return http.StatusConflict
	case *ErrInvalidCredentials, *ErrPasswordMismatch:
		return http.StatusUnauthorized
	case *ErrUserNotFound, *ErrNotFound:
		return http.StatusNotFound
	case *ErrValidation:
		return http.StatusBadRequest
	case *interview.PreconditionError:
		return http.StatusBadRequest
	case *interview.StateError:
		return http.StatusConflict
	case *interview.InterviewerUnavailableError:
		return http.StatusBadGateway
	case *roadmap.ValidationError, *resume.ValidationError,
		*portfolio.ValidationError, *quiz.ValidationError:
		return http.StatusBadRequest
	case *roadmap.APICallError, *resume.APICallError,
		*portfolio.APICallError, *quiz.APICallError:
		return http.StatusBadGateway
	case *roadmap.ParseError, *resume.ParseError,
		*portfolio.ParseError, *quiz.ParseError:
		return http.StatusBadGateway
	case *speech.TransportError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
