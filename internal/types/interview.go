// Package types provides type definitions for structured data used throughout the careerprep system.
package types

// Role identifies the speaker of a transcript turn.
type Role string

// Transcript roles
const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// ChatMessage is one utterance in an interview transcript.
// The transcript is append-only; messages are never edited once appended.
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// InterviewFeedback is the structured result of an interview, created once at
// the transition into the feedback stage and never mutated afterwards.
type InterviewFeedback struct {
	OverallFeedback     string   `json:"overall_feedback"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
}

// Stage is one of the three top-level states of a mock-interview session.
type Stage string

// Interview session stages
const (
	StageSetup        Stage = "setup"
	StageInterviewing Stage = "interviewing"
	StageFeedback     Stage = "feedback"
)

// CreateInterviewRequest represents the request to create an interview session.
type CreateInterviewRequest struct {
	JobTitle       string `json:"job_title" validate:"required,min=1"`
	JobDescription string `json:"job_description,omitempty"`
	ResumeText     string `json:"resume_text" validate:"required,min=1"`
}

// StartInterviewRequest reports the client-side capabilities the setup stage
// is guarded on.
type StartInterviewRequest struct {
	MicGranted        bool `json:"mic_granted"`
	SpeechRecognition bool `json:"speech_recognition"`
}

// CandidateTurnRequest carries the final speech-recognition transcript of one
// candidate utterance.
type CandidateTurnRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}

// InterviewTurnResponse is the interviewer's reply to a candidate turn.
type InterviewTurnResponse struct {
	Message  ChatMessage `json:"message"`
	Finished bool        `json:"finished"`
}
