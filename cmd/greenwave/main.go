// Package main is the entry point for the greenwave control engine.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"

	"github.com/astana-mobility/greenwave/internal/compare"
	"github.com/astana-mobility/greenwave/internal/config"
	"github.com/astana-mobility/greenwave/internal/domain"
	"github.com/astana-mobility/greenwave/internal/env"
	"github.com/astana-mobility/greenwave/internal/impact"
	"github.com/astana-mobility/greenwave/internal/policy"
	"github.com/astana-mobility/greenwave/internal/signal"
	"github.com/astana-mobility/greenwave/internal/sim"
	"github.com/astana-mobility/greenwave/internal/sim/traci"
	"github.com/astana-mobility/greenwave/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to configuration YAML file")
	mode := flag.String("mode", "run", "one of: run, train, compare, impact")
	modelPath := flag.String("model", "", "policy artifact path (overrides config)")
	runID := flag.Int64("run", 0, "comparison run ID for impact mode")
	flag.Parse()

	if *showVersion {
		fmt.Printf("greenwave %s (commit=%s, built=%s)\n", version, commit, date)
		os.Exit(0)
	}

	// Resolve config path: --config flag > GW_CONFIG env > auto-discover.
	path := *configPath
	if path == "" {
		path = os.Getenv("GW_CONFIG")
	}
	if path == "" {
		path = discoverConfig()
	}
	if path == "" {
		fatal("no config found. Place greenwave.yaml next to the exe, use --config <path>, or set GW_CONFIG.")
	}

	cfg, err := config.Load(path)
	if err != nil {
		fatal(fmt.Sprintf("load config: %v", err))
	}
	if *modelPath != "" {
		cfg.Training.ModelPath = *modelPath
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		fatal(fmt.Sprintf("open database: %v", err))
	}
	defer db.Close()

	// Cancel in-flight episodes on interrupt; the deferred env.Close still
	// sends the simulator a stop.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down...")
		cancel()
	}()

	switch *mode {
	case "run":
		err = runControl(ctx, cfg)
	case "train":
		err = runTraining(ctx, cfg)
	case "compare":
		err = runComparison(ctx, cfg, db)
	case "impact":
		err = runImpact(ctx, cfg, db, *runID)
	default:
		fatal(fmt.Sprintf("unknown mode %q (want run, train, compare, or impact)", *mode))
	}
	if err != nil {
		fatal(err.Error())
	}
}

// buildEnv wires the simulator client, the intersection roster, and the
// environment from config. Every agent shares the given policy.
func buildEnv(cfg *config.Config, p domain.Predictor) (*env.Env, sim.Simulator, error) {
	client := traci.New(traci.Options{
		URL:          cfg.Simulator.Endpoint,
		DialAttempts: cfg.Simulator.DialAttempts,
	})

	params := signal.Params{
		MinGreen:       cfg.Control.MinGreen,
		YellowDuration: cfg.Control.YellowDuration,
		MaxLaneCount:   cfg.Control.MaxLaneCount,
		VerticalToken:  cfg.Control.VerticalToken,
		Reward: signal.RewardConfig{
			BusWeight:      cfg.Control.BusWeight,
			Scale:          cfg.Control.RewardScale,
			FavorBonus:     cfg.Control.FavorBonus,
			FavorThreshold: cfg.Control.FavorThreshold,
			WrongPenalty:   cfg.Control.WrongPenalty,
			WrongThreshold: cfg.Control.WrongThreshold,
		},
	}

	agents := make([]*signal.Agent, 0, len(cfg.Roster))
	for _, its := range cfg.Roster {
		agents = append(agents, signal.NewAgent(client, its.ID, its.Lanes, params, p))
	}

	e, err := env.New(client, agents, env.Options{
		Session: sim.SessionConfig{
			ConfigPath: cfg.Simulator.ConfigPath,
			RouteFile:  cfg.Simulator.RouteFile,
			GUI:        cfg.Simulator.GUI,
		},
		Horizon: cfg.Horizon,
	})
	if err != nil {
		return nil, nil, err
	}
	return e, client, nil
}

// runControl drives one deterministic episode with the trained policy.
func runControl(ctx context.Context, cfg *config.Config) error {
	p, err := loadPolicy(cfg.Training.ModelPath)
	if err != nil {
		return err
	}

	e, _, err := buildEnv(cfg, p)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.Reset(ctx); err != nil {
		return err
	}
	log.Printf("controlling %d intersections (scenario=%s)", e.RosterSize(), cfg.Scenario)

	total := 0.0
	for {
		actions := make([]domain.Action, 0, e.RosterSize())
		for _, obs := range e.AgentObservations(ctx) {
			a, err := p.Predict(obs, true)
			if err != nil {
				return err
			}
			actions = append(actions, a)
		}
		res, err := e.Step(ctx, actions)
		if err != nil {
			return err
		}
		total += res.Reward
		if res.Terminated || res.Truncated {
			break
		}
	}
	log.Printf("episode finished: steps=%d reward=%.3f", e.StepCount(), total)
	return nil
}

// runTraining trains the tabular policy against the live simulator and
// writes the artifact to the configured model path.
func runTraining(ctx context.Context, cfg *config.Config) error {
	p := policy.NewQLearning(policy.QConfig{
		Alpha:               cfg.Training.Alpha,
		Gamma:               cfg.Training.Gamma,
		EpsStart:            cfg.Training.EpsStart,
		EpsFinal:            cfg.Training.EpsFinal,
		ExplorationFraction: cfg.Training.ExplorationFraction,
		Seed:                cfg.Training.Seed,
	})

	e, _, err := buildEnv(cfg, p)
	if err != nil {
		return err
	}
	defer e.Close()

	log.Printf("training for %d steps on %d intersections", cfg.Training.TotalSteps, e.RosterSize())
	err = p.Learn(ctx, e, cfg.Training.TotalSteps, func(episode, steps int, reward float64) {
		log.Printf("episode %d: steps=%d reward=%.3f epsilon=%.3f states=%d",
			episode, steps, reward, p.Epsilon(), p.States())
	})
	if err != nil {
		return err
	}

	if err := policy.SaveArtifact(cfg.Training.ModelPath, p); err != nil {
		return err
	}
	log.Printf("saved policy artifact to %s (%d states)", cfg.Training.ModelPath, p.States())
	return nil
}

// runComparison measures the trained policy against the fixed-timer
// baseline and persists the run.
func runComparison(ctx context.Context, cfg *config.Config, db *sql.DB) error {
	p, err := loadPolicy(cfg.Training.ModelPath)
	if err != nil {
		return err
	}

	e, client, err := buildEnv(cfg, p)
	if err != nil {
		return err
	}
	defer e.Close()

	runner := compare.NewRunner(db, client)
	run, err := runner.Compare(ctx, e, cfg.Scenario, p, cfg.EvalSteps, cfg.BaselinePeriod)
	if err != nil {
		return err
	}

	log.Printf("comparison run %d (scenario=%s):", run.ID, run.Scenario)
	log.Printf("  bus waiting: %.1fs -> %.1fs (%.1f%% improvement)",
		run.Baseline.BusMean, run.Adaptive.BusMean, run.BusImprovementPct)
	log.Printf("  car waiting: %.1fs -> %.1fs (%.1f%% improvement)",
		run.Baseline.CarMean, run.Adaptive.CarMean, run.CarImprovementPct)
	return nil
}

// runImpact extrapolates a stored comparison run to city scale.
func runImpact(ctx context.Context, cfg *config.Config, db *sql.DB, runID int64) error {
	if runID == 0 {
		return fmt.Errorf("impact mode requires --run <comparison run ID>")
	}

	runs := &store.ComparisonRepo{}
	run, err := runs.GetByID(ctx, db, runID)
	if err != nil {
		return err
	}

	est := impact.Estimate(impact.AstanaProfile(), impact.FromRun(run), run.ID)
	impacts := &store.ImpactRepo{}
	id, err := impacts.Create(ctx, db, est)
	if err != nil {
		return err
	}
	est.ID = id

	log.Printf("city impact for run %d:", run.ID)
	log.Printf("  bus speed: %.1f -> %.1f km/h", est.BusSpeedBefore, est.BusSpeedAfter)
	log.Printf("  ridership: %d -> %d daily passengers", est.PassengersBefore, est.PassengersAfter)
	log.Printf("  cars removed: %d/day, congestion index %.1f -> %.1f",
		est.CarsRemovedDaily, est.CongestionBefore, est.CongestionAfter)
	log.Printf("  time saved: %d passenger-hours/year", est.TimeSavedHoursYearly)
	log.Printf("  CO2: %.1f -> %.1f t/day (%.0f t/year saved)",
		est.CO2BeforeDailyTons, est.CO2AfterDailyTons, est.CO2SavedYearlyTons)
	log.Printf("  fuel saved: %d L/year (%d KZT)", est.FuelSavedYearlyLiters, est.FuelCostSavedYearly)
	log.Printf("  road load: %.1f%% -> %.1f%%", est.RoadLoadBeforePct, est.RoadLoadAfterPct)
	log.Printf("  total yearly benefit: %d KZT", est.TotalBenefitYearly)
	return nil
}

// loadPolicy loads the trained artifact. A missing artifact is a hard
// error: there is no silent fallback to an untrained policy.
func loadPolicy(path string) (*policy.QLearning, error) {
	p, err := policy.LoadArtifact(path)
	if err != nil {
		var engErr *domain.EngineError
		if errors.As(err, &engErr) && engErr.Code == domain.ErrModelNotFound.Code {
			return nil, fmt.Errorf("%w (train one first with --mode train)", err)
		}
		return nil, err
	}
	return p, nil
}

// discoverConfig looks for greenwave.yaml next to the executable, then in
// the cwd.
func discoverConfig() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "greenwave.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if _, err := os.Stat("greenwave.yaml"); err == nil {
		return "greenwave.yaml"
	}
	return ""
}

func fatal(msg string) {
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", msg)
	os.Exit(1)
}
