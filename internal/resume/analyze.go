// Package resume analyzes resume text against a target role.
package resume

import (
	"context"
	"encoding/json"

	"github.com/jamiewalsh/careerprep/internal/llm"
	"github.com/jamiewalsh/careerprep/internal/prompts"
	"github.com/jamiewalsh/careerprep/internal/schemas"
	"github.com/jamiewalsh/careerprep/internal/types"
)

const resumePromptLimit = 8000

// Analyzer scores resumes against target roles with one structured AI call.
type Analyzer struct {
	client llm.Client
}

// NewAnalyzer creates an analyzer backed by the given LLM client.
func NewAnalyzer(client llm.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze scores the resume against the target role. A parse or validation
// failure is fatal to the request; no partial analysis is returned.
func (a *Analyzer) Analyze(ctx context.Context, resumeText, targetRole string) (*types.ResumeAnalysis, error) {
	if resumeText == "" {
		return nil, &ValidationError{Message: "resume text is required", Field: "resume_text"}
	}
	if targetRole == "" {
		return nil, &ValidationError{Message: "target role is required", Field: "target_role"}
	}

	template := prompts.MustGet("resume.json", "analyze-resume")
	prompt := prompts.Format(template, map[string]string{
		"TargetRole": targetRole,
		"ResumeText": llm.BoundPrefix(resumeText, resumePromptLimit),
	})

	responseText, err := a.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, &APICallError{
			Message: "failed to analyze resume",
			Cause:   err,
		}
	}

	cleaned := llm.CleanJSONBlock(responseText)

	if err := schemas.ValidateEmbedded(schemas.AnalysisSchema, cleaned); err != nil {
		return nil, &ParseError{
			Message: "analysis response does not match schema",
			Cause:   err,
		}
	}

	var analysis types.ResumeAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, &ParseError{
			Message: "failed to parse analysis JSON",
			Cause:   err,
		}
	}

	if analysis.MatchScore < 0 || analysis.MatchScore > 100 {
		return nil, &ValidationError{Message: "match score out of range", Field: "match_score"}
	}

	return &analysis, nil
}
