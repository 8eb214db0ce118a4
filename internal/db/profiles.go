package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-matcher/internal/types"
)

// SaveProfile upserts the whole profile record. Writes are last-writer-wins.
func (db *DB) SaveProfile(ctx context.Context, p *types.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO profiles (id, user_id, data, overall_quality, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		     user_id = $2, data = $3, overall_quality = $4, updated_at = $5`,
		p.ID, p.UserID, data, p.Quality.Overall, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by id.
func (db *DB) GetProfile(ctx context.Context, id string) (*types.Profile, error) {
	var data []byte
	err := db.pool.QueryRow(ctx, `SELECT data FROM profiles WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	var p types.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", id, err)
	}
	return &p, nil
}
