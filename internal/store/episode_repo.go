package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/astana-mobility/greenwave/internal/domain"
)

// EpisodeRepo handles persistence for EpisodeRecord rows.
type EpisodeRepo struct{}

// Create inserts an episode and returns its assigned ID.
func (r *EpisodeRepo) Create(ctx context.Context, db *sql.DB, ep domain.EpisodeRecord) (int64, error) {
	const q = `INSERT INTO episodes (label, policy, scenario, steps, total_reward, terminated, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, q,
		ep.Label,
		ep.Policy,
		ep.Scenario,
		ep.Steps,
		ep.TotalReward,
		boolToInt(ep.Terminated),
		ep.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("create episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("episode id: %w", err)
	}
	return id, nil
}

// GetByID retrieves an episode by its ID.
func (r *EpisodeRepo) GetByID(ctx context.Context, db *sql.DB, id int64) (*domain.EpisodeRecord, error) {
	const q = `SELECT id, label, policy, scenario, steps, total_reward, terminated, created_at
FROM episodes WHERE id = ?`

	row := db.QueryRowContext(ctx, q, id)

	var ep domain.EpisodeRecord
	var terminated int
	err := row.Scan(&ep.ID, &ep.Label, &ep.Policy, &ep.Scenario, &ep.Steps,
		&ep.TotalReward, &terminated, &ep.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("get episode: %w", err)
	}
	ep.Terminated = terminated != 0
	return &ep, nil
}

// ListByScenario returns all episodes for a scenario, newest first.
func (r *EpisodeRepo) ListByScenario(ctx context.Context, db *sql.DB, scenario string) ([]*domain.EpisodeRecord, error) {
	const q = `SELECT id, label, policy, scenario, steps, total_reward, terminated, created_at
FROM episodes WHERE scenario = ? ORDER BY id DESC`

	rows, err := db.QueryContext(ctx, q, scenario)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var out []*domain.EpisodeRecord
	for rows.Next() {
		var ep domain.EpisodeRecord
		var terminated int
		if err := rows.Scan(&ep.ID, &ep.Label, &ep.Policy, &ep.Scenario, &ep.Steps,
			&ep.TotalReward, &terminated, &ep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		ep.Terminated = terminated != 0
		out = append(out, &ep)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
