package interview

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned by waiters when the session is closed before
// the awaited condition is reached.
var ErrSessionClosed = errors.New("interview session closed")

// InterviewerUnavailableError indicates the AI provider could not produce the
// interviewer's next utterance. The session controller surfaces it and leaves
// the state machine where it was.
type InterviewerUnavailableError struct {
	Cause error
}

func (e *InterviewerUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("interviewer unavailable: %v", e.Cause)
	}
	return "interviewer unavailable"
}

func (e *InterviewerUnavailableError) Unwrap() error {
	return e.Cause
}

// AudioUnavailableError indicates speech synthesis or playback failed. The
// text transcript is unaffected; the session continues in text-only mode.
type AudioUnavailableError struct {
	Cause error
}

func (e *AudioUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("audio unavailable: %v", e.Cause)
	}
	return "audio unavailable"
}

func (e *AudioUnavailableError) Unwrap() error {
	return e.Cause
}

// PreconditionError indicates a missing setup-stage requirement. Each missing
// condition gets its own message so the client can surface it verbatim.
type PreconditionError struct {
	Condition string
	Message   string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

// StateError indicates an operation was attempted in a stage or phase that
// does not allow it.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}
