package signal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/astana-mobility/greenwave/internal/domain"
	"github.com/astana-mobility/greenwave/internal/sim"
)

func newTestEvaluator(fake *sim.Fake) *Evaluator {
	streams := Streams{A: []string{"v_in_0"}, B: []string{"h_in_0"}}
	return NewEvaluator(fake, streams, DefaultRewardConfig())
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateEmptyNetworkIsZero(t *testing.T) {
	e := newTestEvaluator(sim.NewFake())

	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen); got != 0 {
		t.Errorf("Evaluate() = %v, want 0 for an empty network", got)
	}
}

func TestEvaluateWaitingDelta(t *testing.T) {
	fake := sim.NewFake()
	fake.Lanes["v_in_0"] = []string{"car_1", "car_2"}
	fake.Lanes["h_in_0"] = []string{"car_3", "car_4"}
	for _, id := range []string{"car_1", "car_2", "car_3", "car_4"} {
		fake.Waiting[id] = 50
	}
	e := newTestEvaluator(fake)

	// Waiting appears: baseline 0 -> 200, reward (0-200)/100. Equal stream
	// counts keep shaping out of the picture.
	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen); !almostEqual(got, -2.0) {
		t.Errorf("first Evaluate() = %v, want -2.0", got)
	}

	// No change: delta zero.
	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen); !almostEqual(got, 0) {
		t.Errorf("steady-state Evaluate() = %v, want 0", got)
	}

	// Queues clear: reward is the full recovered waiting time.
	fake.Lanes = map[string][]string{}
	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen); !almostEqual(got, 2.0) {
		t.Errorf("cleared Evaluate() = %v, want +2.0", got)
	}
}

func TestEvaluateBusWeighting(t *testing.T) {
	fake := sim.NewFake()
	fake.Lanes["v_in_0"] = []string{"bus_1"}
	fake.Lanes["h_in_0"] = []string{"car_1"}
	fake.Classes["bus_1"] = domain.ClassBus
	fake.Waiting["bus_1"] = 10
	fake.Waiting["car_1"] = 10
	e := newTestEvaluator(fake)

	// Weighted total is 10*3 + 10 = 40; the bus counts three times.
	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen); !almostEqual(got, -0.4) {
		t.Errorf("Evaluate() = %v, want -0.4", got)
	}
}

func TestEvaluateFavorBonus(t *testing.T) {
	fake := sim.NewFake()
	var queue []string
	for i := 0; i < 20; i++ {
		queue = append(queue, fmt.Sprintf("car_%d", i))
	}
	fake.Lanes["v_in_0"] = queue
	e := newTestEvaluator(fake)

	// Green faces the 20-vehicle stream, the other stream is empty, and no
	// waiting time has accumulated: pure shaping bonus.
	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen); !almostEqual(got, 1.0) {
		t.Errorf("Evaluate() = %v, want +1.0 favor bonus", got)
	}
}

func TestEvaluateFavorBonusFollowsPhase(t *testing.T) {
	fake := sim.NewFake()
	var queue []string
	for i := 0; i < 20; i++ {
		queue = append(queue, fmt.Sprintf("car_%d", i))
	}
	fake.Lanes["h_in_0"] = queue
	e := newTestEvaluator(fake)

	// Same traffic on the horizontal stream with an east-west green.
	if got := e.Evaluate(context.Background(), domain.PhaseEastWest, domain.SignalGreen); !almostEqual(got, 1.0) {
		t.Errorf("Evaluate() = %v, want +1.0 favor bonus", got)
	}
}

func TestEvaluateWrongStreamPenalty(t *testing.T) {
	fake := sim.NewFake()
	var queue []string
	for i := 0; i < 20; i++ {
		queue = append(queue, fmt.Sprintf("car_%d", i))
	}
	fake.Lanes["h_in_0"] = queue
	e := newTestEvaluator(fake)

	// Green faces the empty vertical stream while 20 vehicles stack up on
	// the horizontal one.
	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen); !almostEqual(got, -2.0) {
		t.Errorf("Evaluate() = %v, want -2.0 wrong-stream penalty", got)
	}
}

func TestEvaluateNoShapingDuringYellow(t *testing.T) {
	fake := sim.NewFake()
	var queue []string
	for i := 0; i < 20; i++ {
		queue = append(queue, fmt.Sprintf("car_%d", i))
	}
	fake.Lanes["v_in_0"] = queue
	e := newTestEvaluator(fake)

	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalYellow); !almostEqual(got, 0) {
		t.Errorf("Evaluate() during yellow = %v, want 0 (no shaping)", got)
	}
}

func TestEvaluateFailSoftKeepsBaseline(t *testing.T) {
	fake := sim.NewFake()
	fake.Lanes["v_in_0"] = []string{"car_1"}
	fake.Lanes["h_in_0"] = []string{"car_2"}
	fake.Waiting["car_1"] = 100
	fake.Waiting["car_2"] = 100
	e := newTestEvaluator(fake)

	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen); !almostEqual(got, -2.0) {
		t.Fatalf("Evaluate() = %v, want -2.0", got)
	}

	// A poisoned tick yields zero and must not advance the baseline.
	fake.QueryErr = errors.New("connection reset")
	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen); got != 0 {
		t.Errorf("Evaluate() with query failure = %v, want 0", got)
	}

	// Recovery: the delta is computed against the pre-failure baseline.
	fake.QueryErr = nil
	fake.Lanes = map[string][]string{}
	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen); !almostEqual(got, 2.0) {
		t.Errorf("Evaluate() after recovery = %v, want +2.0", got)
	}
}

func TestEvaluatorReset(t *testing.T) {
	fake := sim.NewFake()
	fake.Lanes["v_in_0"] = []string{"car_1"}
	fake.Lanes["h_in_0"] = []string{"car_2"}
	fake.Waiting["car_1"] = 100
	fake.Waiting["car_2"] = 100
	e := newTestEvaluator(fake)

	e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen)
	e.Reset()

	// After a reset the accumulated waiting reads as brand new.
	if got := e.Evaluate(context.Background(), domain.PhaseNorthSouth, domain.SignalGreen); !almostEqual(got, -2.0) {
		t.Errorf("Evaluate() after Reset() = %v, want -2.0", got)
	}
}
