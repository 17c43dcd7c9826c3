package signal

import (
	"context"

	"github.com/astana-mobility/greenwave/internal/domain"
	"github.com/astana-mobility/greenwave/internal/sim"
)

// Params bundles the per-intersection control constants.
type Params struct {
	// MinGreen is the ticks a green must last before a switch is honored.
	MinGreen int
	// YellowDuration is the fixed yellow length in ticks.
	YellowDuration int
	// MaxLaneCount clamps per-stream occupancy in observations.
	MaxLaneCount float64
	// VerticalToken marks lane IDs belonging to the north-south stream.
	VerticalToken string
	// Reward holds the shaping constants.
	Reward RewardConfig
}

// DefaultParams returns the tuned control constants.
func DefaultParams() Params {
	return Params{
		MinGreen:       10,
		YellowDuration: 3,
		MaxLaneCount:   50,
		VerticalToken:  "v_",
		Reward:         DefaultRewardConfig(),
	}
}

// Agent controls one intersection: a phase controller, an observation
// encoder, and a reward evaluator behind a single interface. An agent may
// hold a shared, externally-owned policy for deployments where the agent
// itself selects actions; in the multi-agent environment the caller
// normally supplies actions and the reference goes unused.
type Agent struct {
	id         string
	controller *Controller
	encoder    *Encoder
	evaluator  *Evaluator
	policy     domain.Predictor
}

// NewAgent builds an agent for the intersection identified by id, whose
// incoming lanes are partitioned by the params' naming convention. policy
// may be nil; the agent never mutates it.
func NewAgent(s sim.Simulator, id string, lanes []string, p Params, policy domain.Predictor) *Agent {
	streams := PartitionLanes(lanes, p.VerticalToken)
	return &Agent{
		id:         id,
		controller: NewController(s, id, p.MinGreen, p.YellowDuration),
		encoder:    NewEncoder(s, streams, p.MaxLaneCount),
		evaluator:  NewEvaluator(s, streams, p.Reward),
		policy:     policy,
	}
}

// ID returns the intersection identifier.
func (a *Agent) ID() string { return a.id }

// Reset zeroes all controller counters and the waiting baseline, and
// commands the signal back to phase 0. Safe to call repeatedly.
func (a *Agent) Reset(ctx context.Context) {
	a.controller.Reset(ctx)
	a.evaluator.Reset()
}

// Observation encodes the intersection's current simulator state.
func (a *Agent) Observation(ctx context.Context) domain.Observation {
	return a.encoder.Observe(ctx, a.controller.Phase())
}

// Reward evaluates this tick's reward and advances the waiting baseline.
// Call exactly once per simulation step, after the tick has been applied.
func (a *Agent) Reward(ctx context.Context) float64 {
	return a.evaluator.Evaluate(ctx, a.controller.Phase(), a.controller.State())
}

// Execute applies an externally chosen action. It must run before the
// simulator tick so the phase command takes effect on that tick.
func (a *Agent) Execute(ctx context.Context, action domain.Action) error {
	return a.controller.Execute(ctx, action)
}

// Act selects an action with the agent's own policy and executes it. Used
// by single-intersection deployments; fails if no policy was bound.
func (a *Agent) Act(ctx context.Context, deterministic bool) error {
	if a.policy == nil {
		return domain.ErrNoPolicyBound
	}
	action, err := a.policy.Predict(a.Observation(ctx), deterministic)
	if err != nil {
		return err
	}
	return a.controller.Execute(ctx, action)
}

// Controller exposes the phase state machine for inspection.
func (a *Agent) Controller() *Controller { return a.controller }
