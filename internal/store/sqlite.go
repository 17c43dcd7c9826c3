// Package store provides SQLite-backed persistence for episode results,
// baseline comparisons, and impact estimates.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// schemaV1 defines the initial database schema.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS episodes (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	label         TEXT NOT NULL DEFAULT '',
	policy        TEXT NOT NULL DEFAULT '',
	scenario      TEXT NOT NULL DEFAULT '',
	steps         INTEGER NOT NULL DEFAULT 0,
	total_reward  REAL NOT NULL DEFAULT 0.0,
	terminated    INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_episodes_scenario ON episodes(scenario, policy);

CREATE TABLE IF NOT EXISTS comparison_runs (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	scenario             TEXT NOT NULL,
	baseline_bus_mean    REAL NOT NULL DEFAULT 0.0,
	baseline_bus_max     REAL NOT NULL DEFAULT 0.0,
	baseline_bus_std     REAL NOT NULL DEFAULT 0.0,
	baseline_car_mean    REAL NOT NULL DEFAULT 0.0,
	baseline_car_max     REAL NOT NULL DEFAULT 0.0,
	baseline_car_std     REAL NOT NULL DEFAULT 0.0,
	baseline_vehicles    INTEGER NOT NULL DEFAULT 0,
	adaptive_bus_mean    REAL NOT NULL DEFAULT 0.0,
	adaptive_bus_max     REAL NOT NULL DEFAULT 0.0,
	adaptive_bus_std     REAL NOT NULL DEFAULT 0.0,
	adaptive_car_mean    REAL NOT NULL DEFAULT 0.0,
	adaptive_car_max     REAL NOT NULL DEFAULT 0.0,
	adaptive_car_std     REAL NOT NULL DEFAULT 0.0,
	adaptive_vehicles    INTEGER NOT NULL DEFAULT 0,
	bus_improvement_pct  REAL NOT NULL DEFAULT 0.0,
	car_improvement_pct  REAL NOT NULL DEFAULT 0.0,
	created_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_scenario ON comparison_runs(scenario);

CREATE TABLE IF NOT EXISTS impact_estimates (
	id                        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id                    INTEGER NOT NULL DEFAULT 0,
	bus_speed_before          REAL NOT NULL DEFAULT 0.0,
	bus_speed_after           REAL NOT NULL DEFAULT 0.0,
	passengers_before         INTEGER NOT NULL DEFAULT 0,
	passengers_after          INTEGER NOT NULL DEFAULT 0,
	cars_removed_daily        INTEGER NOT NULL DEFAULT 0,
	congestion_before         REAL NOT NULL DEFAULT 0.0,
	congestion_after          REAL NOT NULL DEFAULT 0.0,
	time_saved_hours_yearly   INTEGER NOT NULL DEFAULT 0,
	co2_before_daily_tons     REAL NOT NULL DEFAULT 0.0,
	co2_after_daily_tons      REAL NOT NULL DEFAULT 0.0,
	co2_saved_yearly_tons     REAL NOT NULL DEFAULT 0.0,
	fuel_saved_yearly_liters  INTEGER NOT NULL DEFAULT 0,
	fuel_cost_saved_yearly    INTEGER NOT NULL DEFAULT 0,
	parking_savings_yearly    INTEGER NOT NULL DEFAULT 0,
	road_load_before_pct      REAL NOT NULL DEFAULT 0.0,
	road_load_after_pct       REAL NOT NULL DEFAULT 0.0,
	total_benefit_yearly      INTEGER NOT NULL DEFAULT 0,
	created_at                INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_impact_run ON impact_estimates(run_id);
`

// NewDB opens a SQLite database at the given path with recommended pragmas
// and runs the V1 schema migration.
func NewDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Limit connections to 1 for SQLite (WAL allows concurrent reads but single writer).
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), schemaV1)
	return err
}
