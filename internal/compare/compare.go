// Package compare evaluates the adaptive controller against a fixed-timer
// baseline on the same scenario and records the waiting-time deltas the
// impact extrapolation consumes.
package compare

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/astana-mobility/greenwave/internal/domain"
	"github.com/astana-mobility/greenwave/internal/env"
	"github.com/astana-mobility/greenwave/internal/policy"
	"github.com/astana-mobility/greenwave/internal/sim"
	"github.com/astana-mobility/greenwave/internal/store"
)

// Runner executes evaluation episodes and persists their results.
type Runner struct {
	DB       *sql.DB
	Sim      sim.Simulator
	Episodes *store.EpisodeRepo
	Runs     *store.ComparisonRepo
}

// NewRunner creates a runner writing to the given database.
func NewRunner(db *sql.DB, s sim.Simulator) *Runner {
	return &Runner{
		DB:       db,
		Sim:      s,
		Episodes: &store.EpisodeRepo{},
		Runs:     &store.ComparisonRepo{},
	}
}

// Compare runs one baseline and one adaptive episode on the scenario and
// persists the resulting comparison.
func (r *Runner) Compare(ctx context.Context, e *env.Env, scenario string, p domain.Predictor, steps, baselinePeriod int) (*domain.ComparisonRun, error) {
	baseline, err := r.RunBaseline(ctx, e, scenario, baselinePeriod, steps)
	if err != nil {
		return nil, fmt.Errorf("baseline run: %w", err)
	}

	adaptive, err := r.RunAdaptive(ctx, e, scenario, p, steps)
	if err != nil {
		return nil, fmt.Errorf("adaptive run: %w", err)
	}

	run := domain.ComparisonRun{
		Scenario:          scenario,
		Baseline:          baseline,
		Adaptive:          adaptive,
		BusImprovementPct: improvementPct(baseline.BusMean, adaptive.BusMean),
		CarImprovementPct: improvementPct(baseline.CarMean, adaptive.CarMean),
		CreatedAt:         time.Now().Unix(),
	}

	id, err := r.Runs.Create(ctx, r.DB, run)
	if err != nil {
		return nil, err
	}
	run.ID = id
	return &run, nil
}

// RunBaseline plays a fixed-timer plan through the agent interface: every
// baselinePeriod ticks each intersection is asked to switch.
func (r *Runner) RunBaseline(ctx context.Context, e *env.Env, scenario string, baselinePeriod, steps int) (domain.WaitingStats, error) {
	timer := &policy.FixedTimer{Period: baselinePeriod}
	return r.runEpisode(ctx, e, scenario, "fixed-timer", steps, func(context.Context) ([]domain.Action, error) {
		return timer.JointActions(e.RosterSize()), nil
	})
}

// RunAdaptive plays the given policy deterministically, one prediction per
// intersection per tick.
func (r *Runner) RunAdaptive(ctx context.Context, e *env.Env, scenario string, p domain.Predictor, steps int) (domain.WaitingStats, error) {
	return r.runEpisode(ctx, e, scenario, "adaptive", steps, func(ctx context.Context) ([]domain.Action, error) {
		observations := e.AgentObservations(ctx)
		actions := make([]domain.Action, len(observations))
		for i, obs := range observations {
			a, err := p.Predict(obs, true)
			if err != nil {
				return nil, err
			}
			actions[i] = a
		}
		return actions, nil
	})
}

func (r *Runner) runEpisode(ctx context.Context, e *env.Env, scenario, label string, steps int, chooseActions func(context.Context) ([]domain.Action, error)) (domain.WaitingStats, error) {
	if _, err := e.Reset(ctx); err != nil {
		return domain.WaitingStats{}, err
	}

	var c collector
	totalReward := 0.0
	taken := 0
	terminated := false

	for taken < steps {
		actions, err := chooseActions(ctx)
		if err != nil {
			return domain.WaitingStats{}, err
		}
		res, err := e.Step(ctx, actions)
		if err != nil {
			return domain.WaitingStats{}, err
		}
		c.sample(ctx, r.Sim)
		totalReward += res.Reward
		taken++
		if res.Terminated || res.Truncated {
			terminated = res.Terminated
			break
		}
	}

	stats := c.stats()

	if _, err := r.Episodes.Create(ctx, r.DB, domain.EpisodeRecord{
		Label:       label,
		Policy:      label,
		Scenario:    scenario,
		Steps:       taken,
		TotalReward: totalReward,
		Terminated:  terminated,
		CreatedAt:   time.Now().Unix(),
	}); err != nil {
		return domain.WaitingStats{}, err
	}

	log.Printf("compare: %s/%s: %d steps, reward %.2f, bus wait %.2fs, car wait %.2fs",
		scenario, label, taken, totalReward, stats.BusMean, stats.CarMean)
	return stats, nil
}

// collector accumulates per-class waiting samples over an episode.
type collector struct {
	bus         []float64
	car         []float64
	maxVehicles int
}

// sample records every currently waiting vehicle once for this tick.
// Query failures skip the tick; sampling is observational and must not
// abort the episode.
func (c *collector) sample(ctx context.Context, s sim.Simulator) {
	ids, err := s.ListVehicles(ctx)
	if err != nil {
		return
	}
	if len(ids) > c.maxVehicles {
		c.maxVehicles = len(ids)
	}
	for _, id := range ids {
		waiting, err := s.VehicleWaiting(ctx, id)
		if err != nil || waiting <= 0 {
			continue
		}
		class, err := s.VehicleClass(ctx, id)
		if err != nil {
			continue
		}
		if class == domain.ClassBus {
			c.bus = append(c.bus, waiting)
		} else {
			c.car = append(c.car, waiting)
		}
	}
}

func (c *collector) stats() domain.WaitingStats {
	out := domain.WaitingStats{Vehicles: c.maxVehicles}
	out.BusMean, out.BusMax, out.BusStd = summarize(c.bus)
	out.CarMean, out.CarMax, out.CarStd = summarize(c.car)
	return out
}

func summarize(samples []float64) (mean, max, std float64) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	mean = stat.Mean(samples, nil)
	if len(samples) > 1 {
		std = stat.StdDev(samples, nil)
	}
	for _, v := range samples {
		if v > max {
			max = v
		}
	}
	return mean, max, std
}

func improvementPct(before, after float64) float64 {
	if before == 0 {
		return 0
	}
	return (before - after) / before * 100
}
