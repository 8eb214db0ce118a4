package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-matcher/internal/types"
)

// PublishPosting inserts a posting. Published postings are immutable, so a
// second publish of the same id returns ErrPostingExists.
func (db *DB) PublishPosting(ctx context.Context, p *types.Posting) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal posting: %w", err)
	}
	tag, err := db.pool.Exec(ctx,
		`INSERT INTO postings (id, title, company, data, city, state, country, is_remote,
		                       salary_min, salary_max, employment_type, seniority_level, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Title, p.Company, data,
		p.Location.City, p.Location.State, p.Location.Country, p.Location.IsRemote,
		p.Salary.Min, p.Salary.Max, p.EmploymentType, p.SeniorityLevel, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to publish posting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostingExists
	}
	return nil
}

// GetPosting retrieves a posting by id.
func (db *DB) GetPosting(ctx context.Context, id string) (*types.Posting, error) {
	var data []byte
	err := db.pool.QueryRow(ctx, `SELECT data FROM postings WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get posting: %w", err)
	}
	var p types.Posting
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode posting %s: %w", id, err)
	}
	return &p, nil
}

// ListPostings returns postings passing filter, newest first.
func (db *DB) ListPostings(ctx context.Context, filter types.PostingFilter) ([]types.Posting, error) {
	query, args := postingQuery(filter)
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list postings: %w", err)
	}
	defer rows.Close()

	var postings []types.Posting
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		var p types.Posting
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode posting: %w", err)
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list postings: %w", err)
	}
	return postings, nil
}

// postingQuery builds the filtered listing query. Its predicates mirror
// types.PostingFilter.Matches.
func postingQuery(filter types.PostingFilter) (string, []any) {
	query := `SELECT data FROM postings WHERE 1=1`
	args := []any{}
	argNum := 1

	if filter.RemoteOnly {
		query += " AND is_remote"
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		query += fmt.Sprintf(" AND (city ILIKE $%d OR state ILIKE $%d OR country ILIKE $%d)", argNum, argNum, argNum)
		args = append(args, escapeLike(loc))
		argNum++
	}
	if filter.MinSalary > 0 {
		query += fmt.Sprintf(" AND (salary_max IS NULL OR salary_max >= $%d)", argNum)
		args = append(args, filter.MinSalary)
		argNum++
	}
	if filter.MaxSalary > 0 {
		query += fmt.Sprintf(" AND (salary_min IS NULL OR salary_min <= $%d)", argNum)
		args = append(args, filter.MaxSalary)
		argNum++
	}
	if filter.EmploymentType != "" {
		query += fmt.Sprintf(" AND employment_type ILIKE $%d", argNum)
		args = append(args, escapeLike(filter.EmploymentType))
		argNum++
	}
	if filter.SeniorityLevel != "" {
		query += fmt.Sprintf(" AND seniority_level ILIKE $%d", argNum)
		args = append(args, escapeLike(filter.SeniorityLevel))
	}

	query += " ORDER BY created_at DESC, id ASC"
	return query, args
}

// escapeLike makes s match literally under ILIKE.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// CatalogVersion identifies the current set of published postings. Postings
// are insert-only, so the count and newest timestamp change on every publish.
func (db *DB) CatalogVersion(ctx context.Context) (string, error) {
	var count int64
	var newest *time.Time
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*), MAX(created_at) FROM postings`).Scan(&count, &newest)
	if err != nil {
		return "", fmt.Errorf("failed to read catalog version: %w", err)
	}
	return catalogVersion(count, newest), nil
}

func catalogVersion(count int64, newest *time.Time) string {
	if newest == nil {
		return fmt.Sprintf("v%d-0", count)
	}
	return fmt.Sprintf("v%d-%d", count, newest.UnixNano())
}
