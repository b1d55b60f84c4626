package interview

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jamiewalsh/careerprep/internal/types"
)

// Recognizer is the speech-recognition capability injected into a session. It
// is constructed per session and torn down on session end or restart, so no
// recognizer state is shared across sessions.
type Recognizer interface {
	// Available reports whether speech recognition can be used at all.
	Available() bool
	// Begin starts one listening pass. The final transcript arrives out of
	// band via Session.SubmitCandidateTurn.
	Begin() error
	// Cancel aborts any active listening pass.
	Cancel()
	// Close tears the capability down for good.
	Close()
}

// feedbackTimeout bounds the terminal feedback-generation pass. The pass can
// run after the caller's request context is gone (audio-completion path), so
// it gets its own deadline.
const feedbackTimeout = 60 * time.Second

// Session owns one mock interview: its transcript, stage, and the mutually
// exclusive listening/thinking/speaking phases. All I/O is awaited one
// operation at a time; the guards below reject overlapping phases rather than
// queueing them.
type Session struct {
	ID             string
	JobTitle       string
	JobDescription string
	ResumeText     string
	CreatedAt      time.Time

	driver     *TurnDriver
	audio      *AudioBridge
	recognizer Recognizer

	mu         sync.Mutex
	stage      types.Stage
	transcript []types.ChatMessage
	feedback   *types.InterviewFeedback
	lastErr    string

	listening bool
	thinking  bool
	speaking  bool

	// cancelTurn aborts the in-flight next-question call on forced exit.
	cancelTurn context.CancelFunc

	feedbackDone chan struct{}
	closeDone    chan struct{}
	closed       bool
}

// NewSession creates a session in the setup stage.
func NewSession(req types.CreateInterviewRequest, driver *TurnDriver, audio *AudioBridge, recognizer Recognizer) *Session {
	return &Session{
		ID:             uuid.NewString(),
		JobTitle:       req.JobTitle,
		JobDescription: req.JobDescription,
		ResumeText:     req.ResumeText,
		CreatedAt:      time.Now().UTC(),
		driver:         driver,
		audio:          audio,
		recognizer:     recognizer,
		stage:          types.StageSetup,
		transcript:     make([]types.ChatMessage, 0, 16),
		feedbackDone:   make(chan struct{}),
		closeDone:      make(chan struct{}),
	}
}

// AttachCapabilities swaps in the audio and speech-recognition capabilities
// backing this session, tearing down any previously attached recognizer. A
// live client connection attaches itself here before the interview starts;
// attaching after setup is rejected.
func (s *Session) AttachCapabilities(audio *AudioBridge, recognizer Recognizer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != types.StageSetup {
		return &StateError{Op: "attach", Reason: "interview already started"}
	}
	if s.recognizer != nil {
		s.recognizer.Cancel()
		s.recognizer.Close()
	}
	s.audio = audio
	s.recognizer = recognizer
	return nil
}

// Stage returns the current stage.
func (s *Session) Stage() types.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Transcript returns a copy of the transcript so far.
func (s *Session) Transcript() []types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// LastError returns the most recent session-local error message, empty when
// the last operation succeeded.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Start moves the session from setup to interviewing. Every precondition is
// checked separately so each missing one surfaces its own message; any
// failure leaves the session in setup.
func (s *Session) Start(ctx context.Context, caps types.StartInterviewRequest) (types.ChatMessage, error) {
	s.mu.Lock()
	if s.stage != types.StageSetup {
		s.mu.Unlock()
		return types.ChatMessage{}, &StateError{Op: "start", Reason: "interview already started"}
	}
	if err := s.checkPreconditionsLocked(caps); err != nil {
		s.lastErr = err.Error()
		s.mu.Unlock()
		return types.ChatMessage{}, err
	}
	s.thinking = true
	s.mu.Unlock()

	opening, err := s.driver.NextTurn(ctx, s.JobTitle, s.JobDescription, s.ResumeText, nil)

	s.mu.Lock()
	s.thinking = false
	if err != nil {
		// Stay in setup; the user can try again.
		s.lastErr = err.Error()
		s.mu.Unlock()
		return types.ChatMessage{}, err
	}
	msg := types.ChatMessage{Role: types.RoleInterviewer, Text: opening}
	s.transcript = append(s.transcript, msg)
	s.stage = types.StageInterviewing
	s.lastErr = ""
	s.mu.Unlock()

	s.speak(msg.Text)
	return msg, nil
}

func (s *Session) checkPreconditionsLocked(caps types.StartInterviewRequest) error {
	if s.ResumeText == "" {
		return &PreconditionError{Condition: "resume", Message: "resume required: upload or paste your resume before starting"}
	}
	if s.JobTitle == "" {
		return &PreconditionError{Condition: "job_title", Message: "job title required: set the role you are interviewing for"}
	}
	if !caps.MicGranted {
		return &PreconditionError{Condition: "microphone", Message: "microphone permission required: allow microphone access and try again"}
	}
	if !caps.SpeechRecognition || s.recognizer == nil || !s.recognizer.Available() {
		return &PreconditionError{Condition: "speech_recognition", Message: "speech recognition unsupported in this environment"}
	}
	return nil
}

// BeginListening starts a listening pass. Starting a listen while the session
// is thinking or speaking is rejected without changing state.
func (s *Session) BeginListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != types.StageInterviewing {
		return &StateError{Op: "listen", Reason: "session is not interviewing"}
	}
	if s.thinking || s.speaking || s.listening {
		return &StateError{Op: "listen", Reason: "listen rejected while another phase is active"}
	}
	if err := s.recognizer.Begin(); err != nil {
		s.lastErr = err.Error()
		return err
	}
	s.listening = true
	return nil
}

// SubmitCandidateTurn appends the candidate's final transcript, asks the turn
// driver for the interviewer's reply, appends and speaks it. On a provider
// failure the candidate's words stay in the transcript, the error becomes the
// session's last error, and the stage is unchanged so the user can retry.
func (s *Session) SubmitCandidateTurn(ctx context.Context, text string) (types.InterviewTurnResponse, error) {
	s.mu.Lock()
	if s.stage != types.StageInterviewing {
		s.mu.Unlock()
		return types.InterviewTurnResponse{}, &StateError{Op: "turn", Reason: "session is not interviewing"}
	}
	if s.thinking || s.speaking {
		s.mu.Unlock()
		return types.InterviewTurnResponse{}, &StateError{Op: "turn", Reason: "previous turn still in progress"}
	}
	s.listening = false
	s.recognizer.Cancel()
	s.transcript = append(s.transcript, types.ChatMessage{Role: types.RoleCandidate, Text: text})
	transcript := make([]types.ChatMessage, len(s.transcript))
	copy(transcript, s.transcript)

	turnCtx, cancel := context.WithCancel(ctx)
	s.cancelTurn = cancel
	s.thinking = true
	s.mu.Unlock()

	reply, err := s.driver.NextTurn(turnCtx, s.JobTitle, s.JobDescription, s.ResumeText, transcript)
	cancel()

	s.mu.Lock()
	s.thinking = false
	s.cancelTurn = nil
	if s.stage != types.StageInterviewing {
		// Forced exit won the race; the late result is discarded.
		s.mu.Unlock()
		return types.InterviewTurnResponse{}, &StateError{Op: "turn", Reason: "interview already ended"}
	}
	if err != nil {
		s.lastErr = err.Error()
		s.mu.Unlock()
		return types.InterviewTurnResponse{}, err
	}
	msg := types.ChatMessage{Role: types.RoleInterviewer, Text: reply}
	s.transcript = append(s.transcript, msg)
	s.lastErr = ""
	finished := IsTermination(reply)
	s.mu.Unlock()

	s.speakAndMaybeFinish(msg.Text, finished)
	return types.InterviewTurnResponse{Message: msg, Finished: finished}, nil
}

// speak plays an interviewer line. Synthesis or playback failure is recorded
// as the session's last error; the transcript already holds the text, so the
// session continues in text-only mode.
func (s *Session) speak(text string) {
	utt, err := s.audio.Speak(context.Background(), text)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		log.Printf("[interview] session=%s audio unavailable: %v", s.ID, err)
		return
	}

	// Playback may complete or be stopped before we get here; don't leave a
	// stale guard.
	select {
	case <-utt.Done():
		return
	case <-utt.Released():
		return
	default:
	}

	s.mu.Lock()
	s.speaking = true
	s.mu.Unlock()

	go func() {
		select {
		case <-utt.Done():
		case <-utt.Released():
		}
		s.mu.Lock()
		s.speaking = false
		s.mu.Unlock()
	}()
}

// speakAndMaybeFinish speaks a line and, when it is the termination line,
// enters the feedback stage only after the audio has finished playing. When
// audio is unavailable the transition happens immediately.
func (s *Session) speakAndMaybeFinish(text string, finished bool) {
	if !finished {
		s.speak(text)
		return
	}

	utt, err := s.audio.Speak(context.Background(), text)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.enterFeedback()
		return
	}

	// The feedback transition stays tied to natural playback end. A released
	// playback means ForceEnd or Close is already driving the session.
	select {
	case <-utt.Done():
		s.enterFeedback()
		return
	case <-utt.Released():
		return
	default:
	}

	s.mu.Lock()
	s.speaking = true
	s.mu.Unlock()

	go func() {
		select {
		case <-utt.Done():
			s.mu.Lock()
			s.speaking = false
			s.mu.Unlock()
			s.enterFeedback()
		case <-utt.Released():
			s.mu.Lock()
			s.speaking = false
			s.mu.Unlock()
		}
	}()
}

// ForceEnd ends the interview early: cancels any active listening, aborts the
// in-flight turn, stops and releases audio, and enters the feedback stage.
func (s *Session) ForceEnd() error {
	s.mu.Lock()
	if s.stage != types.StageInterviewing {
		s.mu.Unlock()
		return &StateError{Op: "end", Reason: "session is not interviewing"}
	}
	s.listening = false
	if s.cancelTurn != nil {
		s.cancelTurn()
		s.cancelTurn = nil
	}
	s.mu.Unlock()

	s.recognizer.Cancel()
	s.audio.Stop()
	s.enterFeedback()
	return nil
}

// enterFeedback freezes the transcript, runs the feedback-generation pass,
// and parses the result. It never fails outward: a provider error degrades to
// the parser's fallback content.
func (s *Session) enterFeedback() {
	s.mu.Lock()
	if s.stage == types.StageFeedback {
		s.mu.Unlock()
		return
	}
	s.stage = types.StageFeedback
	transcript := make([]types.ChatMessage, len(s.transcript))
	copy(transcript, s.transcript)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), feedbackTimeout)
	defer cancel()

	raw, err := s.driver.FeedbackText(ctx, s.JobTitle, s.ResumeText, transcript)
	if err != nil {
		log.Printf("[interview] session=%s feedback generation failed, degrading: %v", s.ID, err)
		raw = ""
	}
	parsed := ParseFeedback(raw)

	s.mu.Lock()
	s.feedback = &parsed.Feedback
	s.mu.Unlock()
	close(s.feedbackDone)

	log.Printf("[interview] session=%s feedback ready source=%s turns=%d", s.ID, parsed.Source, len(transcript))
}

// Feedback returns the feedback when the session has reached the feedback
// stage and generation has completed.
func (s *Session) Feedback() (types.InterviewFeedback, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feedback == nil {
		return types.InterviewFeedback{}, false
	}
	return *s.feedback, true
}

// WaitFeedback blocks until feedback is ready, the session is closed, or the
// context expires.
func (s *Session) WaitFeedback(ctx context.Context) (types.InterviewFeedback, error) {
	select {
	case <-s.feedbackDone:
		fb, _ := s.Feedback()
		return fb, nil
	case <-s.closeDone:
		// Close may race a completed feedback pass; prefer the result.
		if fb, ok := s.Feedback(); ok {
			return fb, nil
		}
		return types.InterviewFeedback{}, ErrSessionClosed
	case <-ctx.Done():
		return types.InterviewFeedback{}, ctx.Err()
	}
}

// Close releases session resources. A restart discards the session via Close
// and creates a fresh one in setup.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.closeDone)
	if s.cancelTurn != nil {
		s.cancelTurn()
		s.cancelTurn = nil
	}
	s.mu.Unlock()

	s.audio.Stop()
	if s.recognizer != nil {
		s.recognizer.Cancel()
		s.recognizer.Close()
	}
}
