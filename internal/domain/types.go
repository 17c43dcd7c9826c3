// Package domain defines the core types for the greenwave control engine.
package domain

// Phase identifies which traffic stream has right-of-way at an intersection.
type Phase int

const (
	// PhaseNorthSouth gives the vertical (north-south) stream right-of-way.
	PhaseNorthSouth Phase = 0
	// PhaseEastWest gives the horizontal (east-west) stream right-of-way.
	PhaseEastWest Phase = 1
)

// Opposite returns the competing phase.
func (p Phase) Opposite() Phase {
	return 1 - p
}

// Action is the per-intersection control decision for one simulation tick.
type Action int

const (
	ActionHold   Action = 0
	ActionSwitch Action = 1
)

// SignalState is the controller's position in the green/yellow cycle.
type SignalState string

const (
	SignalGreen  SignalState = "green"
	SignalYellow SignalState = "yellow"
)

// VehicleClass labels a vehicle type reported by the simulator.
type VehicleClass string

const (
	ClassBus VehicleClass = "bus"
	ClassCar VehicleClass = "car"
)

// ObservationSize is the length of a single intersection's feature vector.
const ObservationSize = 5

// Observation is one intersection's view of the simulator for one tick:
// occupancy per stream (clamped), priority-vehicle flags, and current phase.
type Observation struct {
	StreamA float64
	StreamB float64
	BusA    bool
	BusB    bool
	Phase   Phase
}

// Vector flattens the observation into the fixed 5-element encoding
// [streamA, streamB, busA, busB, phase].
func (o Observation) Vector() []float64 {
	v := make([]float64, ObservationSize)
	v[0] = o.StreamA
	v[1] = o.StreamB
	if o.BusA {
		v[2] = 1
	}
	if o.BusB {
		v[3] = 1
	}
	v[4] = float64(o.Phase)
	return v
}

// SessionState tracks the environment's lifecycle against the simulator.
type SessionState string

const (
	SessionUninitialized SessionState = "uninitialized"
	SessionActive        SessionState = "active"
	SessionClosed        SessionState = "closed"
)

// StepResult is the joint outcome of advancing the environment one tick.
type StepResult struct {
	Observation []float64
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        map[string]string
}

// Predictor selects an action from a single intersection's observation.
// Implementations are owned by the caller and shared read-only across agents.
type Predictor interface {
	Predict(obs Observation, deterministic bool) (Action, error)
}

// EpisodeRecord summarizes one bounded simulation session.
type EpisodeRecord struct {
	ID          int64
	Label       string
	Policy      string
	Scenario    string
	Steps       int
	TotalReward float64
	Terminated  bool
	CreatedAt   int64
}

// WaitingStats aggregates per-class waiting-time samples from one run.
type WaitingStats struct {
	BusMean  float64
	BusMax   float64
	BusStd   float64
	CarMean  float64
	CarMax   float64
	CarStd   float64
	Vehicles int
}

// ComparisonRun records a baseline-vs-adaptive evaluation on one scenario.
type ComparisonRun struct {
	ID                int64
	Scenario          string
	Baseline          WaitingStats
	Adaptive          WaitingStats
	BusImprovementPct float64
	CarImprovementPct float64
	CreatedAt         int64
}

// ImpactEstimate is the city-scale extrapolation of simulation deltas.
type ImpactEstimate struct {
	ID                    int64
	RunID                 int64
	BusSpeedBefore        float64
	BusSpeedAfter         float64
	PassengersBefore      int64
	PassengersAfter       int64
	CarsRemovedDaily      int64
	CongestionBefore      float64
	CongestionAfter       float64
	TimeSavedHoursYearly  int64
	CO2BeforeDailyTons    float64
	CO2AfterDailyTons     float64
	CO2SavedYearlyTons    float64
	FuelSavedYearlyLiters int64
	FuelCostSavedYearly   int64
	ParkingSavingsYearly  int64
	RoadLoadBeforePct     float64
	RoadLoadAfterPct      float64
	TotalBenefitYearly    int64
	CreatedAt             int64
}
