package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/astana-mobility/greenwave/internal/domain"
)

// ComparisonRepo handles persistence for ComparisonRun rows.
type ComparisonRepo struct{}

// Create inserts a comparison run and returns its assigned ID.
func (r *ComparisonRepo) Create(ctx context.Context, db *sql.DB, run domain.ComparisonRun) (int64, error) {
	const q = `INSERT INTO comparison_runs (
	scenario,
	baseline_bus_mean, baseline_bus_max, baseline_bus_std,
	baseline_car_mean, baseline_car_max, baseline_car_std, baseline_vehicles,
	adaptive_bus_mean, adaptive_bus_max, adaptive_bus_std,
	adaptive_car_mean, adaptive_car_max, adaptive_car_std, adaptive_vehicles,
	bus_improvement_pct, car_improvement_pct, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := db.ExecContext(ctx, q,
		run.Scenario,
		run.Baseline.BusMean, run.Baseline.BusMax, run.Baseline.BusStd,
		run.Baseline.CarMean, run.Baseline.CarMax, run.Baseline.CarStd, run.Baseline.Vehicles,
		run.Adaptive.BusMean, run.Adaptive.BusMax, run.Adaptive.BusStd,
		run.Adaptive.CarMean, run.Adaptive.CarMax, run.Adaptive.CarStd, run.Adaptive.Vehicles,
		run.BusImprovementPct, run.CarImprovementPct, run.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("create comparison run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("comparison run id: %w", err)
	}
	return id, nil
}

// GetByID retrieves a comparison run by its ID.
func (r *ComparisonRepo) GetByID(ctx context.Context, db *sql.DB, id int64) (*domain.ComparisonRun, error) {
	const q = `SELECT id, scenario,
	baseline_bus_mean, baseline_bus_max, baseline_bus_std,
	baseline_car_mean, baseline_car_max, baseline_car_std, baseline_vehicles,
	adaptive_bus_mean, adaptive_bus_max, adaptive_bus_std,
	adaptive_car_mean, adaptive_car_max, adaptive_car_std, adaptive_vehicles,
	bus_improvement_pct, car_improvement_pct, created_at
FROM comparison_runs WHERE id = ?`

	row := db.QueryRowContext(ctx, q, id)

	var run domain.ComparisonRun
	err := row.Scan(&run.ID, &run.Scenario,
		&run.Baseline.BusMean, &run.Baseline.BusMax, &run.Baseline.BusStd,
		&run.Baseline.CarMean, &run.Baseline.CarMax, &run.Baseline.CarStd, &run.Baseline.Vehicles,
		&run.Adaptive.BusMean, &run.Adaptive.BusMax, &run.Adaptive.BusStd,
		&run.Adaptive.CarMean, &run.Adaptive.CarMax, &run.Adaptive.CarStd, &run.Adaptive.Vehicles,
		&run.BusImprovementPct, &run.CarImprovementPct, &run.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("get comparison run: %w", err)
	}
	return &run, nil
}

// ListScenarios returns the distinct scenarios that have recorded runs.
func (r *ComparisonRepo) ListScenarios(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT scenario FROM comparison_runs ORDER BY scenario`)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
