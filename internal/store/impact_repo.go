package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/astana-mobility/greenwave/internal/domain"
)

// ImpactRepo handles persistence for ImpactEstimate rows.
type ImpactRepo struct{}

// Create inserts an impact estimate and returns its assigned ID.
func (r *ImpactRepo) Create(ctx context.Context, db *sql.DB, est domain.ImpactEstimate) (int64, error) {
	const q = `INSERT INTO impact_estimates (
	run_id, bus_speed_before, bus_speed_after,
	passengers_before, passengers_after, cars_removed_daily,
	congestion_before, congestion_after, time_saved_hours_yearly,
	co2_before_daily_tons, co2_after_daily_tons, co2_saved_yearly_tons,
	fuel_saved_yearly_liters, fuel_cost_saved_yearly, parking_savings_yearly,
	road_load_before_pct, road_load_after_pct, total_benefit_yearly, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := db.ExecContext(ctx, q,
		est.RunID, est.BusSpeedBefore, est.BusSpeedAfter,
		est.PassengersBefore, est.PassengersAfter, est.CarsRemovedDaily,
		est.CongestionBefore, est.CongestionAfter, est.TimeSavedHoursYearly,
		est.CO2BeforeDailyTons, est.CO2AfterDailyTons, est.CO2SavedYearlyTons,
		est.FuelSavedYearlyLiters, est.FuelCostSavedYearly, est.ParkingSavingsYearly,
		est.RoadLoadBeforePct, est.RoadLoadAfterPct, est.TotalBenefitYearly, est.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("create impact estimate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("impact estimate id: %w", err)
	}
	return id, nil
}

// GetByRun retrieves the latest estimate derived from a comparison run.
func (r *ImpactRepo) GetByRun(ctx context.Context, db *sql.DB, runID int64) (*domain.ImpactEstimate, error) {
	const q = `SELECT id, run_id, bus_speed_before, bus_speed_after,
	passengers_before, passengers_after, cars_removed_daily,
	congestion_before, congestion_after, time_saved_hours_yearly,
	co2_before_daily_tons, co2_after_daily_tons, co2_saved_yearly_tons,
	fuel_saved_yearly_liters, fuel_cost_saved_yearly, parking_savings_yearly,
	road_load_before_pct, road_load_after_pct, total_benefit_yearly, created_at
FROM impact_estimates WHERE run_id = ? ORDER BY id DESC LIMIT 1`

	row := db.QueryRowContext(ctx, q, runID)

	var est domain.ImpactEstimate
	err := row.Scan(&est.ID, &est.RunID, &est.BusSpeedBefore, &est.BusSpeedAfter,
		&est.PassengersBefore, &est.PassengersAfter, &est.CarsRemovedDaily,
		&est.CongestionBefore, &est.CongestionAfter, &est.TimeSavedHoursYearly,
		&est.CO2BeforeDailyTons, &est.CO2AfterDailyTons, &est.CO2SavedYearlyTons,
		&est.FuelSavedYearlyLiters, &est.FuelCostSavedYearly, &est.ParkingSavingsYearly,
		&est.RoadLoadBeforePct, &est.RoadLoadAfterPct, &est.TotalBenefitYearly, &est.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("get impact estimate: %w", err)
	}
	return &est, nil
}
