// Package quiz assembles aptitude quizzes from two question pools: a stored
// reference bank and per-request AI generation.
package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jamiewalsh/careerprep/internal/llm"
	"github.com/jamiewalsh/careerprep/internal/prompts"
	"github.com/jamiewalsh/careerprep/internal/schemas"
	"github.com/jamiewalsh/careerprep/internal/types"
)

const (
	defaultCount = 10
	maxCount     = 30
)

// ReferenceStore supplies pre-existing questions for a topic. An empty result
// is normal for topics with no bank coverage.
type ReferenceStore interface {
	QuestionsByTopic(ctx context.Context, topic string, limit int) ([]types.QuizQuestion, error)
}

// Assembler builds quizzes by merging reference questions with AI-generated
// ones. Both pools are fetched in parallel; a failure in either is fatal to
// the request.
type Assembler struct {
	client llm.Client
	store  ReferenceStore
}

// NewAssembler creates an assembler. The store may be nil, in which case
// quizzes are fully AI-generated.
func NewAssembler(client llm.Client, store ReferenceStore) *Assembler {
	return &Assembler{client: client, store: store}
}

// Assemble builds a quiz of up to count questions on the topic. Reference
// questions take priority; AI-generated ones fill the remainder. Duplicate
// question texts are dropped.
func (a *Assembler) Assemble(ctx context.Context, topic string, count int) (*types.Quiz, error) {
	if topic == "" {
		return nil, &ValidationError{Message: "topic is required", Field: "topic"}
	}
	if count <= 0 {
		count = defaultCount
	}
	if count > maxCount {
		count = maxCount
	}

	var (
		reference []types.QuizQuestion
		generated []types.QuizQuestion
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		generated, err = a.generateQuestions(gctx, topic, count)
		return err
	})

	if a.store != nil {
		g.Go(func() error {
			var err error
			reference, err = a.store.QuestionsByTopic(gctx, topic, count)
			if err != nil {
				return fmt.Errorf("failed to load reference questions: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &types.Quiz{
		Topic:     topic,
		Questions: mergeQuestions(reference, generated, count),
	}, nil
}

func (a *Assembler) generateQuestions(ctx context.Context, topic string, count int) ([]types.QuizQuestion, error) {
	template := prompts.MustGet("quiz.json", "generate-questions")
	prompt := prompts.Format(template, map[string]string{
		"Topic": topic,
		"Count": fmt.Sprintf("%d", count),
	})

	responseText, err := a.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, &APICallError{
			Message: "failed to generate quiz questions",
			Cause:   err,
		}
	}

	cleaned := llm.CleanJSONBlock(responseText)

	if err := schemas.ValidateEmbedded(schemas.QuizSchema, cleaned); err != nil {
		return nil, &ParseError{
			Message: "quiz response does not match schema",
			Cause:   err,
		}
	}

	var quiz types.Quiz
	if err := json.Unmarshal([]byte(cleaned), &quiz); err != nil {
		return nil, &ParseError{
			Message: "failed to parse quiz JSON",
			Cause:   err,
		}
	}

	questions := make([]types.QuizQuestion, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			continue
		}
		questions = append(questions, q)
	}

	return questions, nil
}

// mergeQuestions combines the pools, reference first, dropping duplicate
// question texts and capping at count.
func mergeQuestions(reference, generated []types.QuizQuestion, count int) []types.QuizQuestion {
	merged := make([]types.QuizQuestion, 0, count)
	seen := make(map[string]struct{})

	for _, pool := range [][]types.QuizQuestion{reference, generated} {
		for _, q := range pool {
			if len(merged) >= count {
				return merged
			}
			key := strings.ToLower(strings.TrimSpace(q.Question))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, q)
		}
	}

	return merged
}
