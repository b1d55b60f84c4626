package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("roadmap.json", "generate-roadmap")
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "learning roadmap")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("roadmap.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_ValidPrompt(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		prompt := MustGet("interview.json", "system")
		assert.NotEmpty(t, prompt)
	})
}

func TestInterviewPromptContract(t *testing.T) {
	ClearCache()

	// The turn prompts carry the one-question-per-turn and termination rules
	// the session controller depends on.
	system := MustGet("interview.json", "system")
	assert.Contains(t, system, "EXACTLY ONE question")
	assert.Contains(t, system, "{{.TerminationPhrase}}")

	opening := MustGet("interview.json", "opening-turn")
	assert.Contains(t, opening, "One question only")
}

func TestFormat(t *testing.T) {
	template := "Hello {{.Name}}, welcome to {{.Company}}!"
	data := map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	}

	result := Format(template, data)
	assert.Equal(t, "Hello Alice, welcome to Acme Corp!", result)
}

func TestFormat_NoPlaceholders(t *testing.T) {
	template := "No placeholders here"
	data := map[string]string{"Key": "Value"}

	result := Format(template, data)
	assert.Equal(t, template, result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	data := map[string]string{}

	result := Format(template, data)
	assert.Equal(t, template, result) // Placeholder remains
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("interview.json")
	require.NoError(t, err)
	assert.Contains(t, keys, "opening-turn")
	assert.Contains(t, keys, "feedback")
}

func TestCaching(t *testing.T) {
	ClearCache()

	// First call loads from file
	prompt1, err := Get("quiz.json", "generate-questions")
	require.NoError(t, err)

	// Second call should use cache
	prompt2, err := Get("quiz.json", "generate-questions")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}
