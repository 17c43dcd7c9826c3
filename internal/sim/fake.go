package sim

import (
	"context"
	"fmt"
	"sort"

	"github.com/astana-mobility/greenwave/internal/domain"
)

// PhaseCommand records one SetPhase call issued against the fake.
type PhaseCommand struct {
	SignalID   string
	PhaseIndex int
}

// Fake is a scripted in-memory Simulator for tests and offline runs.
// Lane occupancy, vehicle classes, and waiting times are plain maps the
// test mutates between steps; phase commands are recorded in order.
type Fake struct {
	Lanes    map[string][]string
	Classes  map[string]domain.VehicleClass
	Waiting  map[string]float64
	Expected int

	// Commands holds every SetPhase call since the last Start.
	Commands []PhaseCommand

	// StartErr, when set, is returned by Start to simulate an unreachable
	// endpoint. QueryErr poisons every query to exercise fail-soft paths.
	StartErr error
	QueryErr error

	// OnStep, when set, runs after each StepOnce so a test can script
	// traffic evolving over time.
	OnStep func(step int)

	Started bool
	Closed  bool
	Steps   int
	Starts  int
	Closes  int
}

// NewFake returns an empty fake with no traffic.
func NewFake() *Fake {
	return &Fake{
		Lanes:   map[string][]string{},
		Classes: map[string]domain.VehicleClass{},
		Waiting: map[string]float64{},
	}
}

// Start implements Simulator.
func (f *Fake) Start(ctx context.Context, cfg SessionConfig) error {
	if f.StartErr != nil {
		return f.StartErr
	}
	f.Started = true
	f.Closed = false
	f.Steps = 0
	f.Starts++
	f.Commands = nil
	return nil
}

// StepOnce implements Simulator.
func (f *Fake) StepOnce(ctx context.Context) error {
	if !f.Started || f.Closed {
		return domain.ErrSessionNotStarted
	}
	f.Steps++
	if f.OnStep != nil {
		f.OnStep(f.Steps)
	}
	return nil
}

// LaneVehicles implements Simulator.
func (f *Fake) LaneVehicles(ctx context.Context, laneID string) ([]string, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return f.Lanes[laneID], nil
}

// VehicleClass implements Simulator.
func (f *Fake) VehicleClass(ctx context.Context, vehicleID string) (domain.VehicleClass, error) {
	if f.QueryErr != nil {
		return "", f.QueryErr
	}
	if c, ok := f.Classes[vehicleID]; ok {
		return c, nil
	}
	return domain.ClassCar, nil
}

// VehicleWaiting implements Simulator.
func (f *Fake) VehicleWaiting(ctx context.Context, vehicleID string) (float64, error) {
	if f.QueryErr != nil {
		return 0, f.QueryErr
	}
	return f.Waiting[vehicleID], nil
}

// ListVehicles implements Simulator. IDs are returned sorted so runs are
// deterministic.
func (f *Fake) ListVehicles(ctx context.Context) ([]string, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	seen := map[string]bool{}
	var ids []string
	for _, occupants := range f.Lanes {
		for _, id := range occupants {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// SetPhase implements Simulator.
func (f *Fake) SetPhase(ctx context.Context, signalID string, phaseIndex int) error {
	if f.QueryErr != nil {
		return f.QueryErr
	}
	if !f.Started {
		return fmt.Errorf("set phase %s: %w", signalID, domain.ErrSessionNotStarted)
	}
	f.Commands = append(f.Commands, PhaseCommand{SignalID: signalID, PhaseIndex: phaseIndex})
	return nil
}

// ExpectedVehicles implements Simulator.
func (f *Fake) ExpectedVehicles(ctx context.Context) (int, error) {
	if f.QueryErr != nil {
		return 0, f.QueryErr
	}
	return f.Expected, nil
}

// Close implements Simulator. Repeated closes are harmless.
func (f *Fake) Close() error {
	if f.Started && !f.Closed {
		f.Closes++
	}
	f.Closed = true
	f.Started = false
	return nil
}

// CommandsFor returns the recorded phase commands for one signal.
func (f *Fake) CommandsFor(signalID string) []PhaseCommand {
	var out []PhaseCommand
	for _, c := range f.Commands {
		if c.SignalID == signalID {
			out = append(out, c)
		}
	}
	return out
}
