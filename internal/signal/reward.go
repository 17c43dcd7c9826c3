package signal

import (
	"context"

	"github.com/astana-mobility/greenwave/internal/domain"
	"github.com/astana-mobility/greenwave/internal/sim"
)

// RewardConfig holds the tunable shaping constants. The defaults are the
// values the control policy was tuned against; they are configuration, not
// derived quantities.
type RewardConfig struct {
	// BusWeight multiplies a priority vehicle's waiting time in the total.
	BusWeight float64
	// Scale divides the waiting-time delta to normalize the signal.
	Scale float64
	// FavorBonus is added when the green stream beats the other stream's
	// occupancy by more than FavorThreshold.
	FavorBonus     float64
	FavorThreshold float64
	// WrongPenalty is subtracted when the non-green stream exceeds the
	// green stream's occupancy by more than WrongThreshold.
	WrongPenalty   float64
	WrongThreshold float64
}

// DefaultRewardConfig returns the tuned constants: bus weight x3, delta
// scale 100, +1.0 beyond a 5-vehicle margin, -2.0 beyond a 10-vehicle
// deficit.
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		BusWeight:      3,
		Scale:          100,
		FavorBonus:     1.0,
		FavorThreshold: 5,
		WrongPenalty:   2.0,
		WrongThreshold: 10,
	}
}

// Evaluator computes the per-step reward for one intersection: the delta of
// weighted total waiting time between consecutive steps, normalized, plus
// shaping terms while the signal is green. The delta formulation keeps the
// reward range stable regardless of instantaneous congestion.
type Evaluator struct {
	sim     sim.Simulator
	streams Streams
	cfg     RewardConfig

	prevTotalWaiting float64
}

// NewEvaluator creates an evaluator over the same lane partition the
// encoder uses, with a zero waiting baseline.
func NewEvaluator(s sim.Simulator, streams Streams, cfg RewardConfig) *Evaluator {
	return &Evaluator{sim: s, streams: streams, cfg: cfg}
}

// Evaluate computes the reward for the current tick and advances the stored
// waiting-time baseline. It must be called exactly once per simulation step
// per intersection. On any query failure it returns 0 and leaves the
// baseline untouched.
func (e *Evaluator) Evaluate(ctx context.Context, phase domain.Phase, state domain.SignalState) float64 {
	totalWaiting, countA, countB, err := e.survey(ctx)
	if err != nil {
		return 0
	}

	reward := (e.prevTotalWaiting - totalWaiting) / e.cfg.Scale

	// Shaping applies only while green; a yellow is neither right nor
	// wrong about which stream to favor.
	if state == domain.SignalGreen {
		greenCount, otherCount := countA, countB
		if phase == domain.PhaseEastWest {
			greenCount, otherCount = countB, countA
		}
		if greenCount > otherCount+e.cfg.FavorThreshold {
			reward += e.cfg.FavorBonus
		}
		if otherCount > greenCount+e.cfg.WrongThreshold {
			reward -= e.cfg.WrongPenalty
		}
	}

	e.prevTotalWaiting = totalWaiting
	return reward
}

// Reset zeroes the waiting baseline at episode start.
func (e *Evaluator) Reset() {
	e.prevTotalWaiting = 0
}

// survey walks both streams once, accumulating the weighted waiting total
// and per-stream occupancy counts.
func (e *Evaluator) survey(ctx context.Context) (total, countA, countB float64, err error) {
	countA, total, err = e.surveyStream(ctx, e.streams.A, total)
	if err != nil {
		return 0, 0, 0, err
	}
	countB, total, err = e.surveyStream(ctx, e.streams.B, total)
	if err != nil {
		return 0, 0, 0, err
	}
	return total, countA, countB, nil
}

func (e *Evaluator) surveyStream(ctx context.Context, lanes []string, total float64) (float64, float64, error) {
	var count float64
	for _, lane := range lanes {
		vehicles, err := e.sim.LaneVehicles(ctx, lane)
		if err != nil {
			return 0, 0, err
		}
		count += float64(len(vehicles))

		for _, id := range vehicles {
			waiting, err := e.sim.VehicleWaiting(ctx, id)
			if err != nil {
				return 0, 0, err
			}
			class, err := e.sim.VehicleClass(ctx, id)
			if err != nil {
				return 0, 0, err
			}
			if class == domain.ClassBus {
				total += waiting * e.cfg.BusWeight
			} else {
				total += waiting
			}
		}
	}
	return count, total, nil
}
