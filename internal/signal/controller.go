package signal

import (
	"context"
	"fmt"

	"github.com/astana-mobility/greenwave/internal/domain"
	"github.com/astana-mobility/greenwave/internal/sim"
)

// Controller is the per-intersection phase state machine. It holds the
// signal in GREEN until a switch action survives the minimum-green guard,
// then runs a fixed-length YELLOW before giving the opposite stream
// right-of-way. Yellow ignores the supplied action entirely.
type Controller struct {
	signalID       string
	sim            sim.Simulator
	minGreen       int
	yellowDuration int

	phase           domain.Phase
	state           domain.SignalState
	sincePhaseStart int
	yellowElapsed   int
}

// NewController creates a controller in GREEN(north-south) with zeroed
// counters. minGreen and yellowDuration are in simulation ticks.
func NewController(s sim.Simulator, signalID string, minGreen, yellowDuration int) *Controller {
	return &Controller{
		signalID:       signalID,
		sim:            s,
		minGreen:       minGreen,
		yellowDuration: yellowDuration,
		phase:          domain.PhaseNorthSouth,
		state:          domain.SignalGreen,
	}
}

// Execute applies one action for the current tick. A switch is honored only
// once the green has lasted at least minGreen ticks; a switch exactly at the
// boundary succeeds. A switch before the boundary is silently treated as
// hold, which is the guard against rapid phase oscillation. Each transition
// issues exactly one phase command to the simulator.
func (c *Controller) Execute(ctx context.Context, action domain.Action) error {
	if action != domain.ActionHold && action != domain.ActionSwitch {
		return domain.NewEngineError(domain.ErrUnknownAction.Code, fmt.Sprintf("signal %s: action %d", c.signalID, action))
	}

	if c.state == domain.SignalYellow {
		c.yellowElapsed++
		if c.yellowElapsed >= c.yellowDuration {
			c.phase = c.phase.Opposite()
			if err := c.sim.SetPhase(ctx, c.signalID, greenProgram(c.phase)); err != nil {
				return fmt.Errorf("signal %s: end yellow: %w", c.signalID, err)
			}
			c.state = domain.SignalGreen
			c.yellowElapsed = 0
			c.sincePhaseStart = 0
		}
		return nil
	}

	if action == domain.ActionSwitch && c.sincePhaseStart >= c.minGreen {
		if err := c.sim.SetPhase(ctx, c.signalID, yellowProgram(c.phase)); err != nil {
			return fmt.Errorf("signal %s: enter yellow: %w", c.signalID, err)
		}
		c.state = domain.SignalYellow
		c.yellowElapsed = 0
		return nil
	}

	c.sincePhaseStart++
	return nil
}

// Reset returns the controller to GREEN(north-south) with zeroed counters
// and commands the simulator accordingly. The phase command is best-effort:
// the simulator may not have loaded the network yet at episode boundaries.
func (c *Controller) Reset(ctx context.Context) {
	c.phase = domain.PhaseNorthSouth
	c.state = domain.SignalGreen
	c.sincePhaseStart = 0
	c.yellowElapsed = 0
	_ = c.sim.SetPhase(ctx, c.signalID, greenProgram(c.phase))
}

// Phase returns the stream currently holding (or about to lose)
// right-of-way.
func (c *Controller) Phase() domain.Phase { return c.phase }

// State reports whether the signal is in green or yellow.
func (c *Controller) State() domain.SignalState { return c.state }

// SincePhaseStart returns ticks elapsed since the current green began.
func (c *Controller) SincePhaseStart() int { return c.sincePhaseStart }

// YellowElapsed returns ticks spent in the current yellow.
func (c *Controller) YellowElapsed() int { return c.yellowElapsed }

// greenProgram maps a phase to its green program index in the signal plan.
func greenProgram(p domain.Phase) int { return int(p) * 2 }

// yellowProgram maps a phase to the yellow that clears it.
func yellowProgram(p domain.Phase) int { return int(p)*2 + 1 }
