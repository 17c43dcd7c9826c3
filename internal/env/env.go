// Package env composes a fixed roster of intersection agents into one joint
// observation/action/reward environment synchronized to the simulator's
// step function.
package env

import (
	"context"
	"fmt"

	"github.com/astana-mobility/greenwave/internal/domain"
	"github.com/astana-mobility/greenwave/internal/signal"
	"github.com/astana-mobility/greenwave/internal/sim"
)

// Truncation horizons in simulation ticks.
const (
	// HorizonMulti bounds episodes on the multi-intersection network.
	HorizonMulti = 1500
	// HorizonSingle bounds episodes on a single intersection.
	HorizonSingle = 1000
)

// Options configures an environment instance.
type Options struct {
	// Session is the simulator configuration each Reset starts.
	Session sim.SessionConfig
	// Horizon is the truncation step count. Zero selects HorizonMulti for
	// rosters larger than one and HorizonSingle otherwise.
	Horizon int
}

// Env owns one simulator session and a fixed, ordered intersection roster.
// The roster order fixes the index mapping between the joint observation
// and the action vector; it never changes after construction. Env is the
// sole writer of the session lifecycle.
type Env struct {
	sim     sim.Simulator
	session sim.SessionConfig
	agents  []*signal.Agent
	horizon int

	stepCount int
	state     domain.SessionState
}

// New creates an environment over the given roster. The roster must be
// non-empty; its order is frozen here.
func New(s sim.Simulator, agents []*signal.Agent, opts Options) (*Env, error) {
	if len(agents) == 0 {
		return nil, domain.ErrEmptyRoster
	}
	horizon := opts.Horizon
	if horizon == 0 {
		if len(agents) > 1 {
			horizon = HorizonMulti
		} else {
			horizon = HorizonSingle
		}
	}
	return &Env{
		sim:     s,
		session: opts.Session,
		agents:  agents,
		horizon: horizon,
		state:   domain.SessionUninitialized,
	}, nil
}

// Reset starts a fresh simulator session, tearing down any prior one
// (teardown errors are swallowed; a redundant close is expected and
// harmless), resets every agent in roster order, zeroes the step counter,
// and returns the concatenated joint observation.
func (e *Env) Reset(ctx context.Context) ([]float64, error) {
	if e.state == domain.SessionClosed {
		return nil, domain.ErrSessionClosed
	}
	if e.state == domain.SessionActive {
		_ = e.sim.Close()
	}

	if err := e.sim.Start(ctx, e.session); err != nil {
		return nil, domain.WrapEngineError(domain.ErrSimUnreachable.Code, "start session", err)
	}

	for _, agent := range e.agents {
		agent.Reset(ctx)
	}
	e.stepCount = 0
	e.state = domain.SessionActive

	return e.jointObservation(ctx), nil
}

// Step applies one action per roster intersection (in roster order),
// advances the simulator exactly one tick, then harvests observations and
// rewards. The action slice length must equal the roster size; a mismatch
// is a fatal contract violation, never silently coerced, because actions
// applied to the wrong intersection corrupt the training signal
// undetectably.
func (e *Env) Step(ctx context.Context, actions []domain.Action) (*domain.StepResult, error) {
	if e.state != domain.SessionActive {
		return nil, domain.ErrSessionNotStarted
	}
	if len(actions) != len(e.agents) {
		return nil, domain.NewEngineError(domain.ErrActionShape.Code,
			fmt.Sprintf("got %d actions for %d intersections", len(actions), len(e.agents)))
	}

	// Phase commands must land before the tick they are meant to affect.
	for i, agent := range e.agents {
		if err := agent.Execute(ctx, actions[i]); err != nil {
			return nil, err
		}
	}

	if err := e.sim.StepOnce(ctx); err != nil {
		return nil, fmt.Errorf("advance simulation: %w", err)
	}
	e.stepCount++

	obs := e.jointObservation(ctx)
	var reward float64
	for _, agent := range e.agents {
		reward += agent.Reward(ctx)
	}

	// The remaining-vehicle estimate is fail-soft like all other queries:
	// a dropped query means the episode simply continues.
	terminated := false
	if expected, err := e.sim.ExpectedVehicles(ctx); err == nil && expected <= 0 {
		terminated = true
	}

	return &domain.StepResult{
		Observation: obs,
		Reward:      reward,
		Terminated:  terminated,
		Truncated:   e.stepCount >= e.horizon,
		Info:        map[string]string{},
	}, nil
}

// Close tears down the session, best-effort. Repeated closes are no-ops.
func (e *Env) Close() error {
	if e.state == domain.SessionClosed {
		return nil
	}
	if e.state == domain.SessionActive {
		_ = e.sim.Close()
	}
	e.state = domain.SessionClosed
	return nil
}

// AgentObservations returns each intersection's observation in roster
// order, for callers that select actions per agent.
func (e *Env) AgentObservations(ctx context.Context) []domain.Observation {
	out := make([]domain.Observation, len(e.agents))
	for i, agent := range e.agents {
		out[i] = agent.Observation(ctx)
	}
	return out
}

// RosterSize returns the number of managed intersections.
func (e *Env) RosterSize() int { return len(e.agents) }

// Roster returns the intersection IDs in their fixed order.
func (e *Env) Roster() []string {
	ids := make([]string, len(e.agents))
	for i, agent := range e.agents {
		ids[i] = agent.ID()
	}
	return ids
}

// StepCount returns the steps taken since the last Reset.
func (e *Env) StepCount() int { return e.stepCount }

// State reports the environment lifecycle state.
func (e *Env) State() domain.SessionState { return e.state }

func (e *Env) jointObservation(ctx context.Context) []float64 {
	joint := make([]float64, 0, len(e.agents)*domain.ObservationSize)
	for _, agent := range e.agents {
		joint = append(joint, agent.Observation(ctx).Vector()...)
	}
	return joint
}
