package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/astana-mobility/greenwave/internal/domain"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "greenwave_test.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDBCreatesSchema(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{"episodes", "comparison_runs", "impact_estimates"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestEpisodeRepoRoundtrip(t *testing.T) {
	db := testDB(t)
	repo := &EpisodeRepo{}
	ctx := context.Background()

	ep := domain.EpisodeRecord{
		Label:       "baseline",
		Policy:      "fixed_timer",
		Scenario:    "bus_priority",
		Steps:       1500,
		TotalReward: -12.5,
		Terminated:  true,
		CreatedAt:   1700000000,
	}

	id, err := repo.Create(ctx, db, ep)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id == 0 {
		t.Fatal("Create() returned zero ID")
	}

	got, err := repo.GetByID(ctx, db, id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	ep.ID = id
	if !reflect.DeepEqual(*got, ep) {
		t.Errorf("GetByID() = %+v, want %+v", *got, ep)
	}
}

func TestEpisodeRepoNotFound(t *testing.T) {
	db := testDB(t)
	repo := &EpisodeRepo{}

	_, err := repo.GetByID(context.Background(), db, 999)
	if !errors.Is(err, domain.ErrEpisodeNotFound) {
		t.Errorf("GetByID() error = %v, want ErrEpisodeNotFound", err)
	}
}

func TestEpisodeRepoListByScenario(t *testing.T) {
	db := testDB(t)
	repo := &EpisodeRepo{}
	ctx := context.Background()

	for i, scenario := range []string{"a", "b", "a"} {
		if _, err := repo.Create(ctx, db, domain.EpisodeRecord{
			Scenario:  scenario,
			Steps:     i,
			CreatedAt: int64(1700000000 + i),
		}); err != nil {
			t.Fatalf("Create() %d error = %v", i, err)
		}
	}

	got, err := repo.ListByScenario(ctx, db, "a")
	if err != nil {
		t.Fatalf("ListByScenario() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].Steps != 2 || got[1].Steps != 0 {
		t.Errorf("order = [%d, %d], want [2, 0]", got[0].Steps, got[1].Steps)
	}
}

func TestComparisonRepoRoundtrip(t *testing.T) {
	db := testDB(t)
	repo := &ComparisonRepo{}
	ctx := context.Background()

	run := domain.ComparisonRun{
		Scenario: "rush_hour",
		Baseline: domain.WaitingStats{
			BusMean: 45.2, BusMax: 120, BusStd: 15.1,
			CarMean: 38.7, CarMax: 95, CarStd: 12.3,
			Vehicles: 240,
		},
		Adaptive: domain.WaitingStats{
			BusMean: 27.9, BusMax: 80, BusStd: 9.4,
			CarMean: 33.1, CarMax: 88, CarStd: 11.0,
			Vehicles: 238,
		},
		BusImprovementPct: 38.3,
		CarImprovementPct: 14.5,
		CreatedAt:         1700000000,
	}

	id, err := repo.Create(ctx, db, run)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, db, id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	run.ID = id
	if !reflect.DeepEqual(*got, run) {
		t.Errorf("GetByID() = %+v, want %+v", *got, run)
	}
}

func TestComparisonRepoNotFound(t *testing.T) {
	db := testDB(t)
	repo := &ComparisonRepo{}

	_, err := repo.GetByID(context.Background(), db, 12345)
	if !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("GetByID() error = %v, want ErrRunNotFound", err)
	}
}

func TestComparisonRepoListScenarios(t *testing.T) {
	db := testDB(t)
	repo := &ComparisonRepo{}
	ctx := context.Background()

	for _, s := range []string{"b", "a", "b"} {
		if _, err := repo.Create(ctx, db, domain.ComparisonRun{Scenario: s, CreatedAt: 1}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	got, err := repo.ListScenarios(ctx, db)
	if err != nil {
		t.Fatalf("ListScenarios() error = %v", err)
	}
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListScenarios() = %v, want %v", got, want)
	}
}

func TestImpactRepoRoundtrip(t *testing.T) {
	db := testDB(t)
	repo := &ImpactRepo{}
	ctx := context.Background()

	est := domain.ImpactEstimate{
		RunID:                 7,
		BusSpeedBefore:        18,
		BusSpeedAfter:         21.6,
		PassengersBefore:      1005329,
		PassengersAfter:       1206394,
		CarsRemovedDaily:      50266,
		CongestionBefore:      6.5,
		CongestionAfter:       5.2,
		TimeSavedHoursYearly:  30500000,
		CO2BeforeDailyTons:    512.4,
		CO2AfterDailyTons:     471.1,
		CO2SavedYearlyTons:    15074.5,
		FuelSavedYearlyLiters: 62000000,
		FuelCostSavedYearly:   15500000000,
		ParkingSavingsYearly:  3600000000,
		RoadLoadBeforePct:     97.2,
		RoadLoadAfterPct:      83.1,
		TotalBenefitYearly:    19100000000,
		CreatedAt:             1700000000,
	}

	id, err := repo.Create(ctx, db, est)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByRun(ctx, db, 7)
	if err != nil {
		t.Fatalf("GetByRun() error = %v", err)
	}
	est.ID = id
	if !reflect.DeepEqual(*got, est) {
		t.Errorf("GetByRun() = %+v, want %+v", *got, est)
	}
}

func TestImpactRepoLatestWins(t *testing.T) {
	db := testDB(t)
	repo := &ImpactRepo{}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.Create(ctx, db, domain.ImpactEstimate{
			RunID:          1,
			BusSpeedBefore: float64(10 + i),
			CreatedAt:      int64(i),
		}); err != nil {
			t.Fatalf("Create() %d error = %v", i, err)
		}
	}

	got, err := repo.GetByRun(ctx, db, 1)
	if err != nil {
		t.Fatalf("GetByRun() error = %v", err)
	}
	if got.BusSpeedBefore != 12 {
		t.Errorf("BusSpeedBefore = %v, want the latest insert (12)", got.BusSpeedBefore)
	}
}

func TestImpactRepoNotFound(t *testing.T) {
	db := testDB(t)
	repo := &ImpactRepo{}

	_, err := repo.GetByRun(context.Background(), db, 404)
	if !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("GetByRun() error = %v, want ErrRunNotFound", err)
	}
}
