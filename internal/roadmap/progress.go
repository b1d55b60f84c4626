package roadmap

import (
	"context"

	"github.com/google/uuid"

	"github.com/jamiewalsh/careerprep/internal/optimistic"
	"github.com/jamiewalsh/careerprep/internal/types"
)

// ProgressRecord is the per-roadmap completion state, one flag per step.
type ProgressRecord struct {
	Completed []bool
}

// NewProgressRecord creates an all-incomplete record sized to the roadmap.
func NewProgressRecord(roadmap *types.Roadmap) *ProgressRecord {
	return &ProgressRecord{Completed: make([]bool, len(roadmap.Steps))}
}

// ProgressSaver persists the completion flags for a roadmap.
type ProgressSaver interface {
	SaveProgress(ctx context.Context, roadmapID uuid.UUID, completed []bool) error
}

// ProgressTracker applies step-completion changes optimistically: the local
// record is mutated first, then persisted, and reverted if persistence fails.
type ProgressTracker struct {
	saver ProgressSaver
}

// NewProgressTracker creates a tracker backed by the given saver.
func NewProgressTracker(saver ProgressSaver) *ProgressTracker {
	return &ProgressTracker{saver: saver}
}

// SetStep marks one step complete or incomplete. On persistence failure the
// record is left exactly as it was and the saver's error is returned.
func (t *ProgressTracker) SetStep(ctx context.Context, roadmapID uuid.UUID, record *ProgressRecord, stepIndex int, completed bool) error {
	if stepIndex < 0 || stepIndex >= len(record.Completed) {
		return &ValidationError{Message: "step index out of range", Field: "step_index"}
	}

	prev := record.Completed[stepIndex]
	return optimistic.Do(ctx, record,
		func(r *ProgressRecord) { r.Completed[stepIndex] = completed },
		func(r *ProgressRecord) { r.Completed[stepIndex] = prev },
		func(ctx context.Context) error {
			return t.saver.SaveProgress(ctx, roadmapID, record.Completed)
		})
}
