package types

// QuizQuestion is a single multiple-choice aptitude question. Questions come
// from two pools: the stored reference bank and per-request AI generation.
type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation,omitempty"`
}

// Quiz is an assembled set of questions on one topic.
type Quiz struct {
	Topic     string         `json:"topic"`
	Questions []QuizQuestion `json:"questions"`
}

// GenerateQuizRequest represents the request to assemble a quiz.
type GenerateQuizRequest struct {
	Topic string `json:"topic" validate:"required,min=1"`
	Count int    `json:"count,omitempty" validate:"omitempty,min=1,max=30"`
}
