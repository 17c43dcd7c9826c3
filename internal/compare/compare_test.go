package compare

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/astana-mobility/greenwave/internal/domain"
	"github.com/astana-mobility/greenwave/internal/env"
	"github.com/astana-mobility/greenwave/internal/signal"
	"github.com/astana-mobility/greenwave/internal/sim"
	"github.com/astana-mobility/greenwave/internal/store"
)

// holdPolicy never requests a switch.
type holdPolicy struct{}

func (holdPolicy) Predict(obs domain.Observation, deterministic bool) (domain.Action, error) {
	return domain.ActionHold, nil
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "compare_test.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testEnv(t *testing.T, fake *sim.Fake) *env.Env {
	t.Helper()
	agents := []*signal.Agent{
		signal.NewAgent(fake, "J1", []string{"v_in_0", "h_in_0"}, signal.DefaultParams(), nil),
	}
	e, err := env.New(fake, agents, env.Options{Horizon: 100})
	if err != nil {
		t.Fatalf("env.New() error = %v", err)
	}
	return e
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float64
		wantMean float64
		wantMax  float64
		wantStd  float64
	}{
		{"empty", nil, 0, 0, 0},
		{"single sample", []float64{12}, 12, 12, 0},
		{"spread", []float64{10, 20, 30}, 20, 30, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, max, std := summarize(tt.samples)
			if math.Abs(mean-tt.wantMean) > 1e-9 {
				t.Errorf("mean = %v, want %v", mean, tt.wantMean)
			}
			if max != tt.wantMax {
				t.Errorf("max = %v, want %v", max, tt.wantMax)
			}
			if math.Abs(std-tt.wantStd) > 1e-9 {
				t.Errorf("std = %v, want %v", std, tt.wantStd)
			}
		})
	}
}

func TestImprovementPct(t *testing.T) {
	tests := []struct {
		before, after, want float64
	}{
		{50, 25, 50},
		{40, 50, -25},
		{0, 10, 0}, // no baseline waiting: nothing to improve on
		{10, 10, 0},
	}
	for _, tt := range tests {
		if got := improvementPct(tt.before, tt.after); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("improvementPct(%v, %v) = %v, want %v", tt.before, tt.after, got, tt.want)
		}
	}
}

func TestCollectorSample(t *testing.T) {
	fake := sim.NewFake()
	fake.Lanes["v_in_0"] = []string{"bus_1", "car_1", "car_2"}
	fake.Classes["bus_1"] = domain.ClassBus
	fake.Waiting["bus_1"] = 30
	fake.Waiting["car_1"] = 10
	// car_2 is moving: zero waiting must not be sampled.

	var c collector
	c.sample(context.Background(), fake)

	if len(c.bus) != 1 || c.bus[0] != 30 {
		t.Errorf("bus samples = %v, want [30]", c.bus)
	}
	if len(c.car) != 1 || c.car[0] != 10 {
		t.Errorf("car samples = %v, want [10]", c.car)
	}
	if c.maxVehicles != 3 {
		t.Errorf("maxVehicles = %d, want 3", c.maxVehicles)
	}
}

func TestCollectorSampleFailSoft(t *testing.T) {
	fake := sim.NewFake()
	fake.Lanes["v_in_0"] = []string{"car_1"}
	fake.Waiting["car_1"] = 10
	fake.QueryErr = errors.New("connection reset")

	var c collector
	c.sample(context.Background(), fake)

	if len(c.bus) != 0 || len(c.car) != 0 {
		t.Errorf("samples = (%v, %v), want none on a poisoned tick", c.bus, c.car)
	}
}

func TestCompareRunsAndPersists(t *testing.T) {
	fake := sim.NewFake()
	fake.Expected = 10
	fake.Lanes["v_in_0"] = []string{"bus_1", "car_1"}
	fake.Classes["bus_1"] = domain.ClassBus
	fake.Waiting["bus_1"] = 30
	fake.Waiting["car_1"] = 12

	db := testDB(t)
	e := testEnv(t, fake)
	r := NewRunner(db, fake)
	ctx := context.Background()

	run, err := r.Compare(ctx, e, "steady_state", holdPolicy{}, 5, 3)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if run.ID == 0 {
		t.Error("run was not assigned an ID")
	}
	if run.Scenario != "steady_state" {
		t.Errorf("Scenario = %q, want steady_state", run.Scenario)
	}
	// The scripted waiting times never change, so both runs measure the
	// same congestion and the improvement is zero.
	if run.Baseline.BusMean != 30 || run.Adaptive.BusMean != 30 {
		t.Errorf("bus means = (%v, %v), want both 30", run.Baseline.BusMean, run.Adaptive.BusMean)
	}
	if run.Baseline.CarMean != 12 {
		t.Errorf("baseline car mean = %v, want 12", run.Baseline.CarMean)
	}
	if run.BusImprovementPct != 0 || run.CarImprovementPct != 0 {
		t.Errorf("improvements = (%v, %v), want 0", run.BusImprovementPct, run.CarImprovementPct)
	}
	if run.Baseline.Vehicles != 2 {
		t.Errorf("Vehicles = %d, want 2", run.Baseline.Vehicles)
	}

	// The run is retrievable and both episodes were recorded.
	stored, err := r.Runs.GetByID(ctx, db, run.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Baseline.BusMean != 30 {
		t.Errorf("stored baseline bus mean = %v, want 30", stored.Baseline.BusMean)
	}

	episodes, err := r.Episodes.ListByScenario(ctx, db, "steady_state")
	if err != nil {
		t.Fatalf("ListByScenario() error = %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("recorded %d episodes, want 2", len(episodes))
	}
	for _, ep := range episodes {
		if ep.Steps != 5 {
			t.Errorf("episode %s steps = %d, want 5", ep.Label, ep.Steps)
		}
	}
}

func TestRunBaselineStopsAtTermination(t *testing.T) {
	fake := sim.NewFake()
	fake.Expected = 10
	fake.OnStep = func(step int) {
		if step >= 3 {
			fake.Expected = 0
		}
	}

	db := testDB(t)
	e := testEnv(t, fake)
	r := NewRunner(db, fake)

	if _, err := r.RunBaseline(context.Background(), e, "drain", 30, 50); err != nil {
		t.Fatalf("RunBaseline() error = %v", err)
	}

	episodes, err := r.Episodes.ListByScenario(context.Background(), db, "drain")
	if err != nil {
		t.Fatalf("ListByScenario() error = %v", err)
	}
	if len(episodes) != 1 {
		t.Fatalf("recorded %d episodes, want 1", len(episodes))
	}
	if episodes[0].Steps != 3 {
		t.Errorf("Steps = %d, want 3 (stopped when the network drained)", episodes[0].Steps)
	}
	if !episodes[0].Terminated {
		t.Error("Terminated = false, want true")
	}
}
