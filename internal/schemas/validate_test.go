package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmbeddedRoadmap(t *testing.T) {
	t.Run("valid roadmap passes", func(t *testing.T) {
		doc := `{
			"title": "Backend Engineering",
			"description": "From basics to production services",
			"steps": [
				{
					"title": "Learn Go",
					"description": "Language fundamentals",
					"resources": [
						{"title": "Tour of Go", "url": "https://go.dev/tour", "type": "documentation"}
					]
				}
			]
		}`
		assert.NoError(t, ValidateEmbedded(RoadmapSchema, doc))
	})

	t.Run("empty steps rejected", func(t *testing.T) {
		doc := `{"title": "X", "description": "", "steps": []}`
		err := ValidateEmbedded(RoadmapSchema, doc)
		require.Error(t, err)

		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.NotEmpty(t, ve.Errors)
	})

	t.Run("missing title reported with field path", func(t *testing.T) {
		doc := `{"description": "", "steps": [{"title": "A", "description": "B"}]}`
		err := ValidateEmbedded(RoadmapSchema, doc)
		require.Error(t, err)

		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		found := false
		for _, fe := range ve.Errors {
			if fe.Field == "(root)" {
				found = true
			}
		}
		assert.True(t, found, "expected a root-level error for missing title")
	})
}

func TestValidateEmbeddedAnalysis(t *testing.T) {
	t.Run("valid analysis passes", func(t *testing.T) {
		doc := `{
			"match_score": 72,
			"strengths": ["Go", "SQL"],
			"gaps": ["Kubernetes"],
			"suggestions": ["Add metrics experience"],
			"summary": "Solid backend candidate"
		}`
		assert.NoError(t, ValidateEmbedded(AnalysisSchema, doc))
	})

	t.Run("score out of range rejected", func(t *testing.T) {
		doc := `{"match_score": 150, "strengths": [], "gaps": [], "suggestions": [], "summary": ""}`
		err := ValidateEmbedded(AnalysisSchema, doc)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
	})
}

func TestValidateEmbeddedQuiz(t *testing.T) {
	t.Run("valid quiz passes", func(t *testing.T) {
		doc := `{
			"topic": "Go concurrency",
			"questions": [
				{
					"question": "What does a nil channel receive do?",
					"options": ["Panics", "Blocks forever", "Returns zero value", "Closes the channel"],
					"answer_index": 1,
					"explanation": "Receiving from a nil channel blocks forever."
				}
			]
		}`
		assert.NoError(t, ValidateEmbedded(QuizSchema, doc))
	})

	t.Run("single option rejected", func(t *testing.T) {
		doc := `{"questions": [{"question": "Q", "options": ["only"], "answer_index": 0}]}`
		err := ValidateEmbedded(QuizSchema, doc)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
	})
}

func TestValidateEmbeddedPortfolio(t *testing.T) {
	doc := `{
		"headline": "Backend engineer",
		"about": "I build services",
		"skills": ["Go"],
		"projects": [{"name": "careerprep", "description": "Interview practice service"}]
	}`
	assert.NoError(t, ValidateEmbedded(PortfolioSchema, doc))
}

func TestValidateEmbeddedUnknownSchema(t *testing.T) {
	err := ValidateEmbedded("missing.json", `{}`)
	var le *SchemaLoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "missing.json", le.Path)
}

func TestValidateJSONStringMalformedDocument(t *testing.T) {
	err := ValidateJSONString(`{"type": "object"}`, `{not json`)
	var le *SchemaLoadError
	require.True(t, errors.As(err, &le))
}
