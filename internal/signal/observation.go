package signal

import (
	"context"

	"github.com/astana-mobility/greenwave/internal/domain"
	"github.com/astana-mobility/greenwave/internal/sim"
)

// Encoder reads simulator lane state and produces the fixed 5-element
// observation for one intersection. Any query failure yields the all-zero
// observation instead of an error: the simulator is known to drop queries
// around rapid session restarts, and one bad tick must not abort a run.
type Encoder struct {
	sim      sim.Simulator
	streams  Streams
	maxCount float64
	priority domain.VehicleClass
}

// NewEncoder creates an encoder over a fixed lane partition. maxCount
// clamps the per-stream occupancy to bound the observation range.
func NewEncoder(s sim.Simulator, streams Streams, maxCount float64) *Encoder {
	return &Encoder{
		sim:      s,
		streams:  streams,
		maxCount: maxCount,
		priority: domain.ClassBus,
	}
}

// Observe builds the observation for the current tick given the
// controller's phase.
func (e *Encoder) Observe(ctx context.Context, phase domain.Phase) domain.Observation {
	countA, busA, err := e.streamState(ctx, e.streams.A)
	if err != nil {
		return domain.Observation{}
	}
	countB, busB, err := e.streamState(ctx, e.streams.B)
	if err != nil {
		return domain.Observation{}
	}

	return domain.Observation{
		StreamA: clamp(countA, e.maxCount),
		StreamB: clamp(countB, e.maxCount),
		BusA:    busA,
		BusB:    busB,
		Phase:   phase,
	}
}

// streamState sums occupancy over a stream's lanes and checks for a
// priority vehicle. The bus check short-circuits on first match; only
// presence matters, not the count.
func (e *Encoder) streamState(ctx context.Context, lanes []string) (float64, bool, error) {
	var count float64
	hasBus := false

	for _, lane := range lanes {
		vehicles, err := e.sim.LaneVehicles(ctx, lane)
		if err != nil {
			return 0, false, err
		}
		count += float64(len(vehicles))

		if hasBus {
			continue
		}
		for _, id := range vehicles {
			class, err := e.sim.VehicleClass(ctx, id)
			if err != nil {
				return 0, false, err
			}
			if class == e.priority {
				hasBus = true
				break
			}
		}
	}
	return count, hasBus, nil
}

func clamp(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
