package resume

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamiewalsh/careerprep/internal/llm"
)

type fakeLLM struct {
	jsonFn     func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	lastPrompt string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.lastPrompt = prompt
	return f.jsonFn(ctx, prompt, tier)
}

func (f *fakeLLM) GenerateChat(ctx context.Context, systemPrompt string, history []llm.ChatTurn, message string, tier llm.ModelTier) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeLLM) GetModel(tier llm.ModelTier) string { return "fake-model" }

func (f *fakeLLM) Close() error { return nil }

const validAnalysisJSON = `{
	"match_score": 68,
	"strengths": ["Three years of Python", "GenAI project work"],
	"gaps": ["No production deployment experience"],
	"suggestions": ["Quantify project outcomes"],
	"summary": "Promising junior candidate with relevant AI exposure."
}`

func TestAnalyze(t *testing.T) {
	t.Run("parses valid analysis", func(t *testing.T) {
		fake := &fakeLLM{jsonFn: func(context.Context, string, llm.ModelTier) (string, error) {
			return validAnalysisJSON, nil
		}}
		analyzer := NewAnalyzer(fake)

		analysis, err := analyzer.Analyze(context.Background(), "3 years Python, GenAI focus", "Python Developer")
		require.NoError(t, err)
		assert.Equal(t, 68, analysis.MatchScore)
		assert.Len(t, analysis.Strengths, 2)
		assert.Contains(t, fake.lastPrompt, "Python Developer")
	})

	t.Run("missing inputs rejected", func(t *testing.T) {
		analyzer := NewAnalyzer(&fakeLLM{})

		_, err := analyzer.Analyze(context.Background(), "", "Python Developer")
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "resume_text", ve.Field)

		_, err = analyzer.Analyze(context.Background(), "resume", "")
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "target_role", ve.Field)
	})

	t.Run("score above 100 rejected by schema", func(t *testing.T) {
		fake := &fakeLLM{jsonFn: func(context.Context, string, llm.ModelTier) (string, error) {
			return `{"match_score": 150, "strengths": [], "gaps": [], "suggestions": [], "summary": ""}`, nil
		}}
		analyzer := NewAnalyzer(fake)

		_, err := analyzer.Analyze(context.Background(), "resume", "role")
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
	})

	t.Run("provider failure surfaces as APICallError", func(t *testing.T) {
		fake := &fakeLLM{jsonFn: func(context.Context, string, llm.ModelTier) (string, error) {
			return "", errors.New("deadline exceeded")
		}}
		analyzer := NewAnalyzer(fake)

		_, err := analyzer.Analyze(context.Background(), "resume", "role")
		var apiErr *APICallError
		require.True(t, errors.As(err, &apiErr))
	})
}
