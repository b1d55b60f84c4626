package interview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jamiewalsh/careerprep/internal/llm"
	"github.com/jamiewalsh/careerprep/internal/speech"
	"github.com/jamiewalsh/careerprep/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	mu        sync.Mutex
	available bool
	begins    int
	cancels   int
	closed    bool
}

func (r *fakeRecognizer) Available() bool { return r.available }

func (r *fakeRecognizer) Begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begins++
	return nil
}

func (r *fakeRecognizer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
}

func (r *fakeRecognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *fakeRecognizer) beginCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.begins
}

// instantPlayer finishes every playback immediately, so transitions that wait
// for audio completion run without manual pumping.
type instantPlayer struct{}

type finishedPlayback struct{ done chan struct{} }

func (p finishedPlayback) Done() <-chan struct{} { return p.done }
func (p finishedPlayback) Stop()                 {}

func (instantPlayer) Play(speech.Clip) (Playback, error) {
	done := make(chan struct{})
	close(done)
	return finishedPlayback{done: done}, nil
}

func allCaps() types.StartInterviewRequest {
	return types.StartInterviewRequest{MicGranted: true, SpeechRecognition: true}
}

func newTestSession(fake *fakeLLM, rec *fakeRecognizer) *Session {
	req := types.CreateInterviewRequest{
		JobTitle:   "Python Developer",
		ResumeText: "3 years of Python, GenAI focus.",
	}
	driver := NewTurnDriver(fake)
	bridge := NewAudioBridge(&fakeSynth{}, instantPlayer{})
	return NewSession(req, driver, bridge, rec)
}

func waitForStage(t *testing.T, s *Session, want types.Stage) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Stage() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached stage %s (at %s)", want, s.Stage())
}

func TestSession_StartRequiresResume(t *testing.T) {
	rec := &fakeRecognizer{available: true}
	s := newTestSession(&fakeLLM{}, rec)
	s.ResumeText = ""

	_, err := s.Start(context.Background(), allCaps())
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "resume", pre.Condition)
	assert.Contains(t, err.Error(), "resume required")
	assert.Equal(t, types.StageSetup, s.Stage())
	assert.NotEmpty(t, s.LastError())
}

func TestSession_StartPreconditionMessagesAreSpecific(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(s *Session, caps *types.StartInterviewRequest, rec *fakeRecognizer)
		condition string
	}{
		{"missing job title", func(s *Session, _ *types.StartInterviewRequest, _ *fakeRecognizer) {
			s.JobTitle = ""
		}, "job_title"},
		{"mic denied", func(_ *Session, caps *types.StartInterviewRequest, _ *fakeRecognizer) {
			caps.MicGranted = false
		}, "microphone"},
		{"no speech recognition capability", func(_ *Session, caps *types.StartInterviewRequest, _ *fakeRecognizer) {
			caps.SpeechRecognition = false
		}, "speech_recognition"},
		{"recognizer unavailable", func(_ *Session, _ *types.StartInterviewRequest, rec *fakeRecognizer) {
			rec.available = false
		}, "speech_recognition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecognizer{available: true}
			s := newTestSession(&fakeLLM{}, rec)
			caps := allCaps()
			tt.mutate(s, &caps, rec)

			_, err := s.Start(context.Background(), caps)
			var pre *PreconditionError
			require.ErrorAs(t, err, &pre)
			assert.Equal(t, tt.condition, pre.Condition)
			assert.Equal(t, types.StageSetup, s.Stage())
		})
	}
}

func TestSession_StartAppendsOpeningTurn(t *testing.T) {
	rec := &fakeRecognizer{available: true}
	s := newTestSession(&fakeLLM{}, rec)

	msg, err := s.Start(context.Background(), allCaps())
	require.NoError(t, err)
	assert.Equal(t, types.RoleInterviewer, msg.Role)
	assert.Equal(t, types.StageInterviewing, s.Stage())

	transcript := s.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, msg, transcript[0])
}

func TestSession_StartProviderFailureStaysInSetup(t *testing.T) {
	fake := &fakeLLM{chatFn: func(string, []llm.ChatTurn, string) (string, error) {
		return "", errors.New("provider down")
	}}
	rec := &fakeRecognizer{available: true}
	s := newTestSession(fake, rec)

	_, err := s.Start(context.Background(), allCaps())
	var unavailable *InterviewerUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, types.StageSetup, s.Stage())
	assert.Empty(t, s.Transcript())
}

func TestSession_ListenRejectedWhileThinking(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeLLM{chatFn: func(_ string, history []llm.ChatTurn, _ string) (string, error) {
		if len(history) > 0 {
			<-release // hold the follow-up turn in-flight
		}
		return "Next question?", nil
	}}
	rec := &fakeRecognizer{available: true}
	s := newTestSession(fake, rec)

	_, err := s.Start(context.Background(), allCaps())
	require.NoError(t, err)

	turnErr := make(chan error, 1)
	go func() {
		_, err := s.SubmitCandidateTurn(context.Background(), "My answer.")
		turnErr <- err
	}()

	// Wait until the session is thinking.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		thinking := s.thinking
		s.mu.Unlock()
		if thinking {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	err = s.BeginListening()
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Zero(t, rec.beginCount(), "listen while thinking must not start the recognizer")

	close(release)
	require.NoError(t, <-turnErr)
}

func TestSession_CandidateTurnAppendsBothSides(t *testing.T) {
	rec := &fakeRecognizer{available: true}
	s := newTestSession(&fakeLLM{}, rec)
	_, err := s.Start(context.Background(), allCaps())
	require.NoError(t, err)

	resp, err := s.SubmitCandidateTurn(context.Background(), "3 years, GenAI focus.")
	require.NoError(t, err)
	assert.False(t, resp.Finished)
	assert.Equal(t, types.RoleInterviewer, resp.Message.Role)

	transcript := s.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, types.RoleCandidate, transcript[1].Role)
	assert.Equal(t, "3 years, GenAI focus.", transcript[1].Text)
	assert.Equal(t, resp.Message, transcript[2])
}

func TestSession_TurnFailureLeavesStateAndRecordsError(t *testing.T) {
	fail := false
	fake := &fakeLLM{chatFn: func(string, []llm.ChatTurn, string) (string, error) {
		if fail {
			return "", errors.New("timeout")
		}
		return "Opening question?", nil
	}}
	rec := &fakeRecognizer{available: true}
	s := newTestSession(fake, rec)
	_, err := s.Start(context.Background(), allCaps())
	require.NoError(t, err)

	fail = true
	_, err = s.SubmitCandidateTurn(context.Background(), "answer")
	var unavailable *InterviewerUnavailableError
	require.ErrorAs(t, err, &unavailable)

	// Still interviewing, candidate words kept, error recorded.
	assert.Equal(t, types.StageInterviewing, s.Stage())
	assert.NotEmpty(t, s.LastError())
	transcript := s.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, types.RoleCandidate, transcript[1].Role)

	// The user can retry and the session recovers.
	fail = false
	_, err = s.SubmitCandidateTurn(context.Background(), "retry answer")
	require.NoError(t, err)
	assert.Empty(t, s.LastError())
}

func TestSession_TerminationEntersFeedbackAfterAudio(t *testing.T) {
	fake := &fakeLLM{
		chatFn: func(_ string, history []llm.ChatTurn, _ string) (string, error) {
			if len(history) == 0 {
				return "Tell me about Python.", nil
			}
			return "Great talking to you. " + TerminationPhrase, nil
		},
		contentFn: func(string) (string, error) {
			return `{"overall_feedback":"Strong.","strengths":["Clarity"],"areas_for_improvement":["Depth"]}`, nil
		},
	}
	rec := &fakeRecognizer{available: true}
	s := newTestSession(fake, rec)
	_, err := s.Start(context.Background(), allCaps())
	require.NoError(t, err)

	resp, err := s.SubmitCandidateTurn(context.Background(), "3 years, GenAI focus.")
	require.NoError(t, err)
	assert.True(t, resp.Finished)

	waitForStage(t, s, types.StageFeedback)
	fb, err := s.WaitFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Strong.", fb.OverallFeedback)
	assert.Equal(t, []string{"Clarity"}, fb.Strengths)
	assert.Equal(t, []string{"Depth"}, fb.AreasForImprovement)
}

func TestSession_ForceEndGeneratesFeedback(t *testing.T) {
	fake := &fakeLLM{contentFn: func(string) (string, error) {
		return "OVERALL: Cut short but promising.\nSTRENGTHS:\n- Enthusiasm", nil
	}}
	rec := &fakeRecognizer{available: true}
	s := newTestSession(fake, rec)
	_, err := s.Start(context.Background(), allCaps())
	require.NoError(t, err)

	require.NoError(t, s.ForceEnd())
	assert.Equal(t, types.StageFeedback, s.Stage())

	fb, err := s.WaitFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cut short but promising.", fb.OverallFeedback)
	assert.Equal(t, []string{"Enthusiasm"}, fb.Strengths)
	assert.NotEmpty(t, fb.AreasForImprovement, "partial markers are backfilled")

	// Feedback is terminal until restart.
	_, err = s.SubmitCandidateTurn(context.Background(), "more")
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestSession_ForceEndDuringSpeechReleasesSpeakingGuard(t *testing.T) {
	fake := &fakeLLM{contentFn: func(string) (string, error) {
		return "OVERALL: Cut short.", nil
	}}
	rec := &fakeRecognizer{available: true}
	player := &fakePlayer{}
	req := types.CreateInterviewRequest{
		JobTitle:   "Python Developer",
		ResumeText: "3 years of Python, GenAI focus.",
	}
	s := NewSession(req, NewTurnDriver(fake), NewAudioBridge(&fakeSynth{}, player), rec)

	_, err := s.Start(context.Background(), allCaps())
	require.NoError(t, err)

	// The opening line never finishes playing on its own.
	s.mu.Lock()
	speaking := s.speaking
	s.mu.Unlock()
	require.True(t, speaking)

	require.NoError(t, s.ForceEnd())
	require.Len(t, player.playbacks, 1)
	assert.Equal(t, 1, player.playbacks[0].stopCount())

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		speaking = s.speaking
		s.mu.Unlock()
		if !speaking {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("speaking guard must clear once the playback is stopped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSession_CloseUnblocksFeedbackWaiters(t *testing.T) {
	rec := &fakeRecognizer{available: true}
	s := newTestSession(&fakeLLM{}, rec)
	_, err := s.Start(context.Background(), allCaps())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.WaitFeedback(context.Background())
		errCh <- err
	}()

	s.Close()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitFeedback must return once the session is closed")
	}
}

func TestSession_FeedbackNeverFailsOutward(t *testing.T) {
	fake := &fakeLLM{contentFn: func(string) (string, error) {
		return "", errors.New("provider down")
	}}
	rec := &fakeRecognizer{available: true}
	s := newTestSession(fake, rec)
	_, err := s.Start(context.Background(), allCaps())
	require.NoError(t, err)

	require.NoError(t, s.ForceEnd())
	fb, err := s.WaitFeedback(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, fb.OverallFeedback)
	assert.NotEmpty(t, fb.Strengths)
	assert.NotEmpty(t, fb.AreasForImprovement)
}

func TestSession_CloseTearsDownRecognizer(t *testing.T) {
	rec := &fakeRecognizer{available: true}
	s := newTestSession(&fakeLLM{}, rec)
	_, err := s.Start(context.Background(), allCaps())
	require.NoError(t, err)

	s.Close()
	rec.mu.Lock()
	closed := rec.closed
	rec.mu.Unlock()
	assert.True(t, closed)
}

func TestStore_Lifecycle(t *testing.T) {
	store := NewStore()
	rec := &fakeRecognizer{available: true}
	s := newTestSession(&fakeLLM{}, rec)

	store.Add(s)
	got, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	store.Remove(s.ID)
	_, err = store.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Removing twice is a no-op.
	store.Remove(s.ID)
}
