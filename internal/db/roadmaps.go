package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jamiewalsh/careerprep/internal/types"
)

// RoadmapRecord is a stored roadmap with its per-step completion flags.
type RoadmapRecord struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	Roadmap   types.Roadmap `json:"roadmap"`
	Completed []bool        `json:"completed"`
	CreatedAt time.Time     `json:"created_at"`
}

// CreateRoadmap stores a generated roadmap with all steps incomplete and
// returns its ID
func (db *DB) CreateRoadmap(ctx context.Context, userID uuid.UUID, roadmap *types.Roadmap) (uuid.UUID, error) {
	content, err := json.Marshal(roadmap)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal roadmap: %w", err)
	}
	progress, err := json.Marshal(make([]bool, len(roadmap.Steps)))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal progress: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO roadmaps (user_id, content, progress)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		userID, content, progress,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create roadmap: %w", err)
	}
	return id, nil
}

// GetRoadmap retrieves a roadmap by ID, returning nil if not found
func (db *DB) GetRoadmap(ctx context.Context, roadmapID uuid.UUID) (*RoadmapRecord, error) {
	var record RoadmapRecord
	var content, progress []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, content, progress, created_at
		 FROM roadmaps WHERE id = $1`,
		roadmapID,
	).Scan(&record.ID, &record.UserID, &content, &progress, &record.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get roadmap: %w", err)
	}

	if err := json.Unmarshal(content, &record.Roadmap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roadmap: %w", err)
	}
	if err := json.Unmarshal(progress, &record.Completed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}

	return &record, nil
}

// ListRoadmapsByUser retrieves a user's roadmaps, newest first
func (db *DB) ListRoadmapsByUser(ctx context.Context, userID uuid.UUID) ([]RoadmapRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, content, progress, created_at
		 FROM roadmaps WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmaps: %w", err)
	}
	defer rows.Close()

	var records []RoadmapRecord
	for rows.Next() {
		var record RoadmapRecord
		var content, progress []byte
		if err := rows.Scan(&record.ID, &record.UserID, &content, &progress, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan roadmap: %w", err)
		}
		if err := json.Unmarshal(content, &record.Roadmap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal roadmap: %w", err)
		}
		if err := json.Unmarshal(progress, &record.Completed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// SaveProgress persists the completion flags for a roadmap
func (db *DB) SaveProgress(ctx context.Context, roadmapID uuid.UUID, completed []bool) error {
	progress, err := json.Marshal(completed)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE roadmaps SET progress = $1 WHERE id = $2`,
		progress, roadmapID,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("roadmap not found: %s", roadmapID)
	}
	return nil
}

// DeleteRoadmap deletes a roadmap by ID
func (db *DB) DeleteRoadmap(ctx context.Context, roadmapID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM roadmaps WHERE id = $1`, roadmapID)
	if err != nil {
		return fmt.Errorf("failed to delete roadmap: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("roadmap not found: %s", roadmapID)
	}
	return nil
}
