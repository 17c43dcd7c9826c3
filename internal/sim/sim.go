// Package sim defines the boundary to the external microscopic traffic
// simulator. The engine is the sole owner of the session lifecycle; agents
// only issue read queries and single phase commands through this interface.
package sim

import (
	"context"

	"github.com/astana-mobility/greenwave/internal/domain"
)

// SessionConfig identifies the network configuration a session is bound to.
type SessionConfig struct {
	// ConfigPath is the simulator network/config identifier.
	ConfigPath string
	// RouteFile optionally overrides the traffic demand for the session.
	RouteFile string
	// GUI requests the visual frontend where the simulator supports one.
	GUI bool
}

// Simulator is the synchronous step/query/command contract of the external
// simulation engine. Start may fail if the endpoint is unreachable; all
// queries are fallible and callers decide whether a failure is fatal.
type Simulator interface {
	// Start begins a session. Only one session may be active at a time;
	// callers must Close the previous session first.
	Start(ctx context.Context, cfg SessionConfig) error

	// StepOnce advances simulated time by one tick.
	StepOnce(ctx context.Context) error

	// LaneVehicles returns the IDs of vehicles currently occupying a lane.
	LaneVehicles(ctx context.Context, laneID string) ([]string, error)

	// VehicleClass returns the class label of a vehicle.
	VehicleClass(ctx context.Context, vehicleID string) (domain.VehicleClass, error)

	// VehicleWaiting returns a vehicle's accumulated waiting time.
	VehicleWaiting(ctx context.Context, vehicleID string) (float64, error)

	// ListVehicles returns the IDs of all vehicles in the network.
	ListVehicles(ctx context.Context) ([]string, error)

	// SetPhase commands a signal to the given program phase index.
	SetPhase(ctx context.Context, signalID string, phaseIndex int) error

	// ExpectedVehicles reports how many vehicles are still in or due to
	// enter the network. Zero means the session has drained.
	ExpectedVehicles(ctx context.Context) (int, error)

	// Close tears down the session. Closing an already-closed session is
	// harmless and must not be treated as an error by callers.
	Close() error
}
