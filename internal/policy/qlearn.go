package policy

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/astana-mobility/greenwave/internal/domain"
)

// QConfig holds the tabular Q-learning hyperparameters.
type QConfig struct {
	Alpha    float64 `msgpack:"alpha"`
	Gamma    float64 `msgpack:"gamma"`
	EpsStart float64 `msgpack:"eps_start"`
	EpsFinal float64 `msgpack:"eps_final"`
	// ExplorationFraction is the share of total steps over which epsilon
	// anneals from EpsStart to EpsFinal.
	ExplorationFraction float64 `msgpack:"exploration_fraction"`
	Seed                int64   `msgpack:"seed"`
}

// DefaultQConfig mirrors the exploration schedule the system was tuned
// with: anneal from 1.0 to 0.05 over the first 30% of training.
func DefaultQConfig() QConfig {
	return QConfig{
		Alpha:               0.1,
		Gamma:               0.98,
		EpsStart:            1.0,
		EpsFinal:            0.05,
		ExplorationFraction: 0.3,
		Seed:                1,
	}
}

// QLearning is a tabular epsilon-greedy policy over a discretized
// observation. One table serves every intersection: in the common-policy
// configuration each agent's transition updates the same values.
type QLearning struct {
	cfg QConfig
	q   map[string][2]float64
	rng *rand.Rand
	eps float64
}

// NewQLearning creates an untrained policy.
func NewQLearning(cfg QConfig) *QLearning {
	return &QLearning{
		cfg: cfg,
		q:   map[string][2]float64{},
		rng: rand.New(rand.NewSource(cfg.Seed)),
		eps: cfg.EpsFinal,
	}
}

// Predict implements domain.Predictor. Deterministic predictions take the
// greedy action; otherwise the current epsilon applies.
func (p *QLearning) Predict(obs domain.Observation, deterministic bool) (domain.Action, error) {
	if !deterministic && p.rng.Float64() < p.eps {
		return domain.Action(p.rng.Intn(2)), nil
	}
	values := p.q[stateKey(obs)]
	if values[domain.ActionSwitch] > values[domain.ActionHold] {
		return domain.ActionSwitch, nil
	}
	return domain.ActionHold, nil
}

// Learn implements Policy: episodic one-step TD updates against the joint
// environment, all agents sharing this table and the summed reward.
func (p *QLearning) Learn(ctx context.Context, env Environment, totalSteps int, cb EpisodeCallback) error {
	steps := 0
	episode := 0

	for steps < totalSteps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := env.Reset(ctx); err != nil {
			return fmt.Errorf("reset episode %d: %w", episode+1, err)
		}

		perAgent := env.AgentObservations(ctx)
		episodeReward := 0.0
		episodeSteps := 0

		for {
			p.eps = p.schedule(steps, totalSteps)

			actions := make([]domain.Action, len(perAgent))
			for i, obs := range perAgent {
				a, err := p.Predict(obs, false)
				if err != nil {
					return err
				}
				actions[i] = a
			}

			res, err := env.Step(ctx, actions)
			if err != nil {
				return fmt.Errorf("training step %d: %w", steps+1, err)
			}
			next := env.AgentObservations(ctx)

			for i := range perAgent {
				p.update(perAgent[i], actions[i], res.Reward, next[i], res.Terminated)
			}

			perAgent = next
			steps++
			episodeSteps++
			episodeReward += res.Reward

			if res.Terminated || res.Truncated || steps >= totalSteps {
				break
			}
		}

		episode++
		if cb != nil {
			cb(episode, episodeSteps, episodeReward)
		}
	}
	return nil
}

// Epsilon returns the current exploration rate.
func (p *QLearning) Epsilon() float64 { return p.eps }

// Config returns the hyperparameters the policy was built with.
func (p *QLearning) Config() QConfig { return p.cfg }

// States returns the number of distinct discretized states seen so far.
func (p *QLearning) States() int { return len(p.q) }

func (p *QLearning) update(obs domain.Observation, action domain.Action, reward float64, next domain.Observation, terminal bool) {
	key := stateKey(obs)
	values := p.q[key]

	target := reward
	if !terminal {
		nextValues := p.q[stateKey(next)]
		best := nextValues[0]
		if nextValues[1] > best {
			best = nextValues[1]
		}
		target += p.cfg.Gamma * best
	}

	values[action] += p.cfg.Alpha * (target - values[action])
	p.q[key] = values
}

func (p *QLearning) schedule(step, totalSteps int) float64 {
	annealSteps := float64(totalSteps) * p.cfg.ExplorationFraction
	if annealSteps <= 0 || float64(step) >= annealSteps {
		return p.cfg.EpsFinal
	}
	frac := float64(step) / annealSteps
	return p.cfg.EpsStart + frac*(p.cfg.EpsFinal-p.cfg.EpsStart)
}

// stateKey discretizes an observation. Occupancy buckets are coarse on
// purpose: the table has to stay small enough to visit.
func stateKey(obs domain.Observation) string {
	return fmt.Sprintf("%d|%d|%t|%t|%d",
		bucket(obs.StreamA), bucket(obs.StreamB), obs.BusA, obs.BusB, obs.Phase)
}

func bucket(count float64) int {
	switch {
	case count < 5:
		return 0
	case count < 15:
		return 1
	case count < 30:
		return 2
	default:
		return 3
	}
}
