package interview

import (
	"context"
	"fmt"
	"strings"

	"github.com/jamiewalsh/careerprep/internal/llm"
	"github.com/jamiewalsh/careerprep/internal/prompts"
	"github.com/jamiewalsh/careerprep/internal/types"
)

// TerminationPhrase is the literal sentence the interviewer speaks to end the
// interview. The session controller pattern-matches on it after the final
// audio finishes playing.
const TerminationPhrase = "That concludes our mock interview. Thank you for your time."

const (
	// Question count the interviewer targets over a whole session.
	minQuestions = 5
	maxQuestions = 8

	// resumePromptLimit bounds the resume prefix included in outbound prompts.
	resumePromptLimit = 4000
)

// TurnDriver produces the interviewer's next utterance from the transcript so
// far. It is purely text-in/text-out; its only side effect is the outbound
// provider call.
type TurnDriver struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewTurnDriver creates a turn driver backed by the given LLM client.
func NewTurnDriver(client llm.Client) *TurnDriver {
	return &TurnDriver{client: client, tier: llm.TierStandard}
}

// NextTurn returns the interviewer's next utterance. With an empty transcript
// it produces the opening self-introduction plus one warm-up question;
// afterwards, exactly one follow-up question per call. Once the interviewer
// has asked its question budget, a fixed closing line containing
// TerminationPhrase is returned without a provider call, so termination is
// guaranteed even if the model ignores its instructions.
func (d *TurnDriver) NextTurn(ctx context.Context, jobTitle, jobDescription, resumeText string, transcript []types.ChatMessage) (string, error) {
	if questionCount(transcript) >= maxQuestions {
		return "Thank you, that was my last question. " + TerminationPhrase, nil
	}

	system := d.systemPrompt(jobTitle, jobDescription, resumeText)

	if len(transcript) == 0 {
		opening := prompts.Format(prompts.MustGet("interview.json", "opening-turn"), map[string]string{
			"JobTitle": jobTitle,
		})
		return d.generate(ctx, system, nil, opening)
	}

	history, message := splitTranscript(transcript)
	return d.generate(ctx, system, history, message)
}

// IsTermination reports whether an interviewer utterance ends the interview.
func IsTermination(text string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(TerminationPhrase))
}

// FeedbackText runs the feedback-generation pass over a frozen transcript and
// returns the model's free-form output. Callers hand the result to
// ParseFeedback; a transport error here still ends in usable feedback because
// the parser's fallback stage accepts anything, including the empty string.
func (d *TurnDriver) FeedbackText(ctx context.Context, jobTitle, resumeText string, transcript []types.ChatMessage) (string, error) {
	prompt := prompts.Format(prompts.MustGet("interview.json", "feedback"), map[string]string{
		"JobTitle":   jobTitle,
		"ResumeText": llm.BoundPrefix(resumeText, resumePromptLimit),
		"Transcript": formatTranscript(transcript),
	})

	text, err := d.client.GenerateContent(ctx, prompt, d.tier)
	if err != nil {
		return "", &InterviewerUnavailableError{Cause: err}
	}
	return text, nil
}

func (d *TurnDriver) systemPrompt(jobTitle, jobDescription, resumeText string) string {
	descSection := ""
	if strings.TrimSpace(jobDescription) != "" {
		descSection = "Job description:\n\"\"\"\n" + jobDescription + "\n\"\"\"\n"
	}
	return prompts.Format(prompts.MustGet("interview.json", "system"), map[string]string{
		"JobTitle":              jobTitle,
		"ResumeText":            llm.BoundPrefix(resumeText, resumePromptLimit),
		"JobDescriptionSection": descSection,
		"MinQuestions":          fmt.Sprintf("%d", minQuestions),
		"MaxQuestions":          fmt.Sprintf("%d", maxQuestions),
		"TerminationPhrase":     TerminationPhrase,
	})
}

func (d *TurnDriver) generate(ctx context.Context, system string, history []llm.ChatTurn, message string) (string, error) {
	text, err := d.client.GenerateChat(ctx, system, history, message, d.tier)
	if err != nil {
		return "", &InterviewerUnavailableError{Cause: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &InterviewerUnavailableError{}
	}
	return text, nil
}

// splitTranscript maps the transcript onto provider chat history plus the
// message to respond to. The final candidate utterance becomes the message;
// everything before it is history.
func splitTranscript(transcript []types.ChatMessage) ([]llm.ChatTurn, string) {
	last := len(transcript) - 1
	message := "Please continue the interview."
	if transcript[last].Role == types.RoleCandidate {
		message = transcript[last].Text
		transcript = transcript[:last]
	}

	history := make([]llm.ChatTurn, 0, len(transcript))
	for _, m := range transcript {
		role := "user"
		if m.Role == types.RoleInterviewer {
			role = "model"
		}
		history = append(history, llm.ChatTurn{Role: role, Text: m.Text})
	}
	return history, message
}

// questionCount counts interviewer turns, which map one-to-one onto questions
// under the one-question-per-turn prompt contract.
func questionCount(transcript []types.ChatMessage) int {
	n := 0
	for _, m := range transcript {
		if m.Role == types.RoleInterviewer {
			n++
		}
	}
	return n
}

func formatTranscript(transcript []types.ChatMessage) string {
	var sb strings.Builder
	for _, m := range transcript {
		if m.Role == types.RoleInterviewer {
			sb.WriteString("Interviewer: ")
		} else {
			sb.WriteString("Candidate: ")
		}
		sb.WriteString(m.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
