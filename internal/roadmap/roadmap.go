// Package roadmap generates structured learning roadmaps from a topic or from
// resume text.
package roadmap

import (
	"context"
	"encoding/json"

	"github.com/jamiewalsh/careerprep/internal/llm"
	"github.com/jamiewalsh/careerprep/internal/prompts"
	"github.com/jamiewalsh/careerprep/internal/schemas"
	"github.com/jamiewalsh/careerprep/internal/types"
)

const resumePromptLimit = 8000

// Generator produces roadmaps from a single structured AI call per request.
// A parse or validation failure is fatal to that request; no partial roadmap
// is ever returned.
type Generator struct {
	client llm.Client
}

// NewGenerator creates a roadmap generator backed by the given LLM client.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate creates a roadmap for a topic. Level and timeline are free-form
// hints and may be empty.
func (g *Generator) Generate(ctx context.Context, topic, level, timeline string) (*types.Roadmap, error) {
	if topic == "" {
		return nil, &ValidationError{Message: "topic is required", Field: "topic"}
	}
	if level == "" {
		level = "beginner"
	}
	if timeline == "" {
		timeline = "3 months"
	}

	template := prompts.MustGet("roadmap.json", "generate-roadmap")
	prompt := prompts.Format(template, map[string]string{
		"Topic":    topic,
		"Level":    level,
		"Timeline": timeline,
	})

	return g.generate(ctx, prompt)
}

// FromResume creates a roadmap targeting the most valuable skill gap found in
// the resume text.
func (g *Generator) FromResume(ctx context.Context, resumeText string) (*types.Roadmap, error) {
	if resumeText == "" {
		return nil, &ValidationError{Message: "resume text is required", Field: "resume_text"}
	}

	template := prompts.MustGet("roadmap.json", "roadmap-from-resume")
	prompt := prompts.Format(template, map[string]string{
		"ResumeText": llm.BoundPrefix(resumeText, resumePromptLimit),
	})

	return g.generate(ctx, prompt)
}

func (g *Generator) generate(ctx context.Context, prompt string) (*types.Roadmap, error) {
	responseText, err := g.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, &APICallError{
			Message: "failed to generate roadmap",
			Cause:   err,
		}
	}

	cleaned := llm.CleanJSONBlock(responseText)

	if err := schemas.ValidateEmbedded(schemas.RoadmapSchema, cleaned); err != nil {
		return nil, &ParseError{
			Message: "roadmap response does not match schema",
			Cause:   err,
		}
	}

	var roadmap types.Roadmap
	if err := json.Unmarshal([]byte(cleaned), &roadmap); err != nil {
		return nil, &ParseError{
			Message: "failed to parse roadmap JSON",
			Cause:   err,
		}
	}

	if err := postProcess(&roadmap); err != nil {
		return nil, err
	}

	return &roadmap, nil
}

// postProcess enforces the roadmap invariants after unmarshaling: steps must
// be non-empty and every resource type is coerced into the closed enum.
func postProcess(roadmap *types.Roadmap) error {
	if roadmap.Title == "" {
		return &ValidationError{Message: "roadmap title is empty", Field: "title"}
	}
	if len(roadmap.Steps) == 0 {
		return &ValidationError{Message: "roadmap has no steps", Field: "steps"}
	}

	for i := range roadmap.Steps {
		step := &roadmap.Steps[i]
		if step.Title == "" {
			return &ValidationError{Message: "step title is empty", Field: "steps"}
		}
		for j := range step.Resources {
			res := &step.Resources[j]
			res.Type = types.NormalizeResourceType(string(res.Type))
		}
	}

	return nil
}
