package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jamiewalsh/careerprep/internal/types"
)

// SavePortfolio stores or replaces a user's portfolio profile
func (db *DB) SavePortfolio(ctx context.Context, userID uuid.UUID, profile *types.PortfolioProfile) error {
	content, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO portfolios (user_id, content)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET content = $2, updated_at = NOW()`,
		userID, content,
	)
	if err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}

// GetPortfolioByUser retrieves a user's portfolio profile, returning nil if
// none has been generated
func (db *DB) GetPortfolioByUser(ctx context.Context, userID uuid.UUID) (*types.PortfolioProfile, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM portfolios WHERE user_id = $1`,
		userID,
	).Scan(&content)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	var profile types.PortfolioProfile
	if err := json.Unmarshal(content, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal portfolio: %w", err)
	}
	return &profile, nil
}
