// Package traci implements the sim.Simulator contract over a WebSocket
// connection to a SUMO TraCI middleware. Each call is one request/response
// frame pair; the frame carries an "endpoint" discriminator.
package traci

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/astana-mobility/greenwave/internal/domain"
	"github.com/astana-mobility/greenwave/internal/sim"
)

// Options configures the middleware client.
type Options struct {
	// URL is the middleware WebSocket endpoint, e.g. ws://127.0.0.1:5555.
	URL string
	// DialAttempts bounds the connect retry loop. Zero means 5.
	DialAttempts int
	// DialBackoff is the sleep between attempts. Zero means 1s.
	DialBackoff time.Duration
}

// Client talks to a SUMO TraCI middleware. It is not safe for concurrent
// use; the control loop is single-threaded by design.
type Client struct {
	opts Options
	conn *websocket.Conn
}

type request struct {
	Endpoint  string   `json:"endpoint"`
	Config    string   `json:"config,omitempty"`
	RouteFile string   `json:"routeFile,omitempty"`
	GUI       bool     `json:"gui,omitempty"`
	Lane      string   `json:"lane,omitempty"`
	Vehicle   string   `json:"vehicle,omitempty"`
	Signal    string   `json:"signal,omitempty"`
	Phase     int      `json:"phase"`
	ExtraArgs []string `json:"extraArgs,omitempty"`
}

type response struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Vehicles []string `json:"vehicles,omitempty"`
	Class    string   `json:"class,omitempty"`
	Waiting  float64  `json:"waiting"`
	Expected int      `json:"expected"`
}

// New creates a client for the given middleware endpoint. No connection is
// made until Start.
func New(opts Options) *Client {
	if opts.DialAttempts == 0 {
		opts.DialAttempts = 5
	}
	if opts.DialBackoff == 0 {
		opts.DialBackoff = time.Second
	}
	return &Client{opts: opts}
}

// Start dials the middleware and begins a simulation session.
func (c *Client) Start(ctx context.Context, cfg sim.SessionConfig) error {
	if c.conn != nil {
		// A lingering connection means the prior session was not closed.
		c.Close()
	}

	var conn *websocket.Conn
	var err error
	for attempt := 1; attempt <= c.opts.DialAttempts; attempt++ {
		conn, _, err = websocket.DefaultDialer.DialContext(ctx, c.opts.URL, nil)
		if err == nil {
			break
		}
		log.Printf("traci: dial %s failed (attempt %d/%d): %v", c.opts.URL, attempt, c.opts.DialAttempts, err)
		select {
		case <-ctx.Done():
			return domain.WrapEngineError(domain.ErrSimUnreachable.Code, "dial canceled", ctx.Err())
		case <-time.After(c.opts.DialBackoff):
		}
	}
	if err != nil {
		return domain.WrapEngineError(domain.ErrSimUnreachable.Code, fmt.Sprintf("dial %s", c.opts.URL), err)
	}
	c.conn = conn

	_, err = c.roundTrip(request{
		Endpoint:  "start",
		Config:    cfg.ConfigPath,
		RouteFile: cfg.RouteFile,
		GUI:       cfg.GUI,
	})
	if err != nil {
		c.Close()
		return err
	}
	return nil
}

// StepOnce advances the simulation by one tick.
func (c *Client) StepOnce(ctx context.Context) error {
	_, err := c.roundTrip(request{Endpoint: "step"})
	return err
}

// LaneVehicles returns the vehicles occupying a lane.
func (c *Client) LaneVehicles(ctx context.Context, laneID string) ([]string, error) {
	resp, err := c.roundTrip(request{Endpoint: "laneVehicles", Lane: laneID})
	if err != nil {
		return nil, err
	}
	return resp.Vehicles, nil
}

// VehicleClass returns a vehicle's class label.
func (c *Client) VehicleClass(ctx context.Context, vehicleID string) (domain.VehicleClass, error) {
	resp, err := c.roundTrip(request{Endpoint: "vehicleClass", Vehicle: vehicleID})
	if err != nil {
		return "", err
	}
	return domain.VehicleClass(resp.Class), nil
}

// VehicleWaiting returns a vehicle's accumulated waiting time.
func (c *Client) VehicleWaiting(ctx context.Context, vehicleID string) (float64, error) {
	resp, err := c.roundTrip(request{Endpoint: "vehicleWaiting", Vehicle: vehicleID})
	if err != nil {
		return 0, err
	}
	return resp.Waiting, nil
}

// ListVehicles returns all vehicle IDs in the network.
func (c *Client) ListVehicles(ctx context.Context) ([]string, error) {
	resp, err := c.roundTrip(request{Endpoint: "vehicles"})
	if err != nil {
		return nil, err
	}
	return resp.Vehicles, nil
}

// SetPhase commands a signal to a program phase index.
func (c *Client) SetPhase(ctx context.Context, signalID string, phaseIndex int) error {
	_, err := c.roundTrip(request{Endpoint: "setPhase", Signal: signalID, Phase: phaseIndex})
	return err
}

// ExpectedVehicles returns the simulator's remaining-vehicle estimate.
func (c *Client) ExpectedVehicles(ctx context.Context) (int, error) {
	resp, err := c.roundTrip(request{Endpoint: "expected"})
	if err != nil {
		return 0, err
	}
	return resp.Expected, nil
}

// Close sends a best-effort stop and drops the connection. Closing an
// already-closed client is a no-op.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.WriteJSON(request{Endpoint: "stop"}); err != nil {
		log.Printf("traci: stop request failed: %v", err)
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) roundTrip(req request) (*response, error) {
	if c.conn == nil {
		return nil, domain.ErrSessionNotStarted
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, domain.WrapEngineError(domain.ErrSimUnreachable.Code, fmt.Sprintf("send %s", req.Endpoint), err)
	}
	var resp response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, domain.WrapEngineError(domain.ErrSimUnreachable.Code, fmt.Sprintf("read %s response", req.Endpoint), err)
	}
	if !resp.OK {
		return nil, domain.NewEngineError(domain.ErrSimProtocol.Code, fmt.Sprintf("%s: %s", req.Endpoint, resp.Error))
	}
	return &resp, nil
}

var _ sim.Simulator = (*Client)(nil)
