// Package policy provides the trainable-policy contract consumed by the
// environment's callers, plus the baseline policies the comparisons run
// against. Policies are owned by the caller and shared read-only across
// agents; agents never mutate them.
package policy

import (
	"context"

	"github.com/astana-mobility/greenwave/internal/domain"
)

// Environment is the surface a policy needs for training: the joint
// reset/step loop plus per-agent observations for action selection.
type Environment interface {
	Reset(ctx context.Context) ([]float64, error)
	Step(ctx context.Context, actions []domain.Action) (*domain.StepResult, error)
	AgentObservations(ctx context.Context) []domain.Observation
	RosterSize() int
}

// EpisodeCallback is invoked after each training episode.
type EpisodeCallback func(episode, steps int, reward float64)

// Policy is an opaque decision function with a training entry point.
type Policy interface {
	domain.Predictor

	// Learn runs training against env for totalSteps environment steps.
	Learn(ctx context.Context, env Environment, totalSteps int, cb EpisodeCallback) error
}

// LongestQueue is a stateless heuristic: release the stream with the longer
// queue, with priority vehicles breaking ties toward their stream.
type LongestQueue struct {
	// Margin is how many vehicles the waiting stream must lead by before a
	// switch is requested. Guards against thrashing on near-equal queues.
	Margin float64
}

// Predict implements domain.Predictor.
func (p *LongestQueue) Predict(obs domain.Observation, deterministic bool) (domain.Action, error) {
	current, other := obs.StreamA, obs.StreamB
	busCurrent, busOther := obs.BusA, obs.BusB
	if obs.Phase == domain.PhaseEastWest {
		current, other = other, current
		busCurrent, busOther = busOther, busCurrent
	}

	if busOther && !busCurrent {
		return domain.ActionSwitch, nil
	}
	if other > current+p.Margin {
		return domain.ActionSwitch, nil
	}
	return domain.ActionHold, nil
}

// Learn implements Policy. The heuristic has no parameters to fit.
func (p *LongestQueue) Learn(ctx context.Context, env Environment, totalSteps int, cb EpisodeCallback) error {
	return nil
}

// FixedTimer reproduces a fixed-cycle signal plan at the agent interface:
// every Period ticks it requests a switch at every intersection, holding
// otherwise. This is what the no-AI baseline reduces to. Note the effective
// cycle also includes the yellow and any remaining minimum-green time.
type FixedTimer struct {
	Period int

	tick int
}

// JointActions returns one action per roster intersection for the current
// tick and advances the internal cycle counter.
func (f *FixedTimer) JointActions(rosterSize int) []domain.Action {
	f.tick++
	action := domain.ActionHold
	if f.tick >= f.Period {
		f.tick = 0
		action = domain.ActionSwitch
	}
	actions := make([]domain.Action, rosterSize)
	for i := range actions {
		actions[i] = action
	}
	return actions
}
