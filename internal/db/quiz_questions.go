package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jamiewalsh/careerprep/internal/types"
)

// AddQuizQuestion stores a reference question for a topic and returns its ID
func (db *DB) AddQuizQuestion(ctx context.Context, topic string, question types.QuizQuestion) (uuid.UUID, error) {
	options, err := json.Marshal(question.Options)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal options: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO quiz_questions (topic, question, options, answer_index, explanation)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		topic, question.Question, options, question.AnswerIndex, question.Explanation,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to add quiz question: %w", err)
	}
	return id, nil
}

// QuestionsByTopic retrieves up to limit reference questions for a topic.
// Topic match is case-insensitive; an empty result is not an error.
func (db *DB) QuestionsByTopic(ctx context.Context, topic string, limit int) ([]types.QuizQuestion, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT question, options, answer_index, COALESCE(explanation, '')
		 FROM quiz_questions WHERE LOWER(topic) = LOWER($1)
		 ORDER BY created_at ASC LIMIT $2`,
		topic, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz questions: %w", err)
	}
	defer rows.Close()

	var questions []types.QuizQuestion
	for rows.Next() {
		var q types.QuizQuestion
		var options []byte
		if err := rows.Scan(&q.Question, &options, &q.AnswerIndex, &q.Explanation); err != nil {
			return nil, fmt.Errorf("failed to scan quiz question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}
