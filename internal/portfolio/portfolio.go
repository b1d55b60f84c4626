// Package portfolio extracts a portfolio page model from resume text.
package portfolio

import (
	"context"
	"encoding/json"

	"github.com/jamiewalsh/careerprep/internal/llm"
	"github.com/jamiewalsh/careerprep/internal/prompts"
	"github.com/jamiewalsh/careerprep/internal/schemas"
	"github.com/jamiewalsh/careerprep/internal/types"
)

const resumePromptLimit = 8000

// Generator builds portfolio profiles with one structured AI call.
type Generator struct {
	client llm.Client
}

// NewGenerator creates a portfolio generator backed by the given LLM client.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate extracts a portfolio profile from resume text. Facts come from the
// resume only; the prompt forbids inventing projects or skills. A parse or
// validation failure is fatal to the request.
func (g *Generator) Generate(ctx context.Context, resumeText string) (*types.PortfolioProfile, error) {
	if resumeText == "" {
		return nil, &ValidationError{Message: "resume text is required", Field: "resume_text"}
	}

	template := prompts.MustGet("portfolio.json", "generate-portfolio")
	prompt := prompts.Format(template, map[string]string{
		"ResumeText": llm.BoundPrefix(resumeText, resumePromptLimit),
	})

	responseText, err := g.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, &APICallError{
			Message: "failed to generate portfolio",
			Cause:   err,
		}
	}

	cleaned := llm.CleanJSONBlock(responseText)

	if err := schemas.ValidateEmbedded(schemas.PortfolioSchema, cleaned); err != nil {
		return nil, &ParseError{
			Message: "portfolio response does not match schema",
			Cause:   err,
		}
	}

	var profile types.PortfolioProfile
	if err := json.Unmarshal([]byte(cleaned), &profile); err != nil {
		return nil, &ParseError{
			Message: "failed to parse portfolio JSON",
			Cause:   err,
		}
	}

	if len(profile.Skills) == 0 {
		return nil, &ValidationError{Message: "portfolio has no skills", Field: "skills"}
	}
	if profile.Projects == nil {
		profile.Projects = []types.PortfolioProject{}
	}

	return &profile, nil
}
