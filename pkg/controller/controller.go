// Package controller serialises commands onto a servo.Engine and exposes them over HTTP and
// WebSocket.
package controller

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Seann-Moser/i2cpwm/pkg/io"
	"github.com/Seann-Moser/i2cpwm/pkg/servo"
)

// Switch is an output that can be turned on and off, such as the boards' output enable pin.
type Switch interface {
	Enable() error
	Disable() error
}

type request struct {
	name    string
	payload any
	reply   chan result
}

type result struct {
	resp Response
	err  error
}

// Controller is the only caller of its engine. Commands from any goroutine are queued and run
// one at a time, each to completion, by Run.
type Controller struct {
	engine   *servo.Engine
	logger   *zap.SugaredLogger
	requests chan request
	outputs  Switch
	estop    <-chan io.ButtonEvent
}

// Option configures a Controller.
type Option func(*Controller)

// WithOutputEnable enables out when Run starts and disables it on Close.
func WithOutputEnable(out Switch) Option {
	return func(c *Controller) {
		c.outputs = out
	}
}

// WithEStop runs stopAll whenever an event arrives on events.
func WithEStop(events <-chan io.ButtonEvent) Option {
	return func(c *Controller) {
		c.estop = events
	}
}

// New returns a controller for engine. Run must be started before commands are submitted.
func New(engine *servo.Engine, logger *zap.SugaredLogger, opts ...Option) *Controller {
	c := &Controller{
		engine:   engine,
		logger:   logger,
		requests: make(chan request, 64),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run processes commands until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	if c.outputs != nil {
		if err := c.outputs.Enable(); err != nil {
			c.logger.Errorw("failed to enable outputs", "error", err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.requests:
			resp, err := c.handle(req.name, req.payload)
			if req.reply != nil {
				req.reply <- result{resp: resp, err: err}
			} else if err != nil {
				c.logger.Errorw("dropped command", "name", req.name, "error", err)
			}
		case evt := <-c.estop:
			c.logger.Warnw("emergency stop pressed", "line", evt.Offset, "held", evt.Duration)
			_, _ = c.handle(StopAll, nil)
		}
	}
}

// Do queues a command and waits for its response.
func (c *Controller) Do(ctx context.Context, name string, payload any) (Response, error) {
	req := request{name: name, payload: payload, reply: make(chan result, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Post queues a command without waiting for it to run.
func (c *Controller) Post(ctx context.Context, name string, payload any) error {
	select {
	case c.requests <- request{name: name, payload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops every board, disables the outputs and closes the engine's bus. Run must have
// returned.
func (c *Controller) Close() error {
	err := c.engine.Close()
	if c.outputs != nil {
		err = multierr.Append(err, c.outputs.Disable())
	}
	return err
}

func (c *Controller) handle(name string, payload any) (Response, error) {
	c.logger.Debugw("command", "name", name, "payload", payload)
	switch name {
	case SetActiveBoard:
		return withPayload(payload, c.setActiveBoard)
	case SetFrequency:
		return withPayload(payload, c.setFrequency)
	case SetAbsolute:
		return withPayload(payload, func(p ServoArray) Response {
			return Response{Failed: failed(c.engine.SetAbsoluteAll(p.Servos))}
		})
	case SetProportional:
		return withPayload(payload, func(p ServoArray) Response {
			return Response{Failed: failed(c.engine.SetProportionalAll(p.Servos))}
		})
	case SetDriveVelocity:
		return withPayload(payload, c.drive)
	case ConfigureCalibration:
		return withPayload(payload, c.configureCalibration)
	case ConfigureDriveMode:
		return withPayload(payload, c.configureDriveMode)
	case StopAll:
		if err := c.engine.StopAll(); err != nil {
			c.logger.Errorw("stop servos", "error", err)
		}
		if c.outputs != nil && c.engine.CurrentBoard() == servo.NoBoard {
			if err := c.outputs.Disable(); err != nil {
				c.logger.Errorw("failed to disable outputs", "error", err)
			}
		}
		return Response{}, nil
	case Status:
		s := c.engine.Status()
		return Response{Status: &s}, nil
	}
	c.logger.Errorw("unknown command", "name", name)
	return Response{}, errors.Wrap(ErrUnknownCommand, name)
}

func withPayload[T any](payload any, fn func(T) Response) (Response, error) {
	p, err := decode[T](payload)
	if err != nil {
		return Response{}, err
	}
	return fn(p), nil
}

func (c *Controller) setActiveBoard(p IntValue) Response {
	board := p.Value
	if !servo.ValidBoard(board) {
		c.logger.Errorw("invalid board number, board numbers must be between 1 and 62", "board", board)
		board = servo.DefaultBoard
	}
	if err := c.engine.ActivateBoard(board); err != nil {
		if errors.Is(err, servo.ErrHardwareSelect) {
			return Response{Error: -1}
		}
	}
	// the prescaler lives on each chip, reapply it to the one now addressed
	_ = c.engine.SetFrequency(c.engine.Frequency())
	return Response{Error: board}
}

func (c *Controller) setFrequency(p IntValue) Response {
	hz := p.Value
	if !servo.ValidFrequency(hz) {
		c.logger.Errorw("invalid PWM frequency, PWM frequencies should be between 12 and 1024", "frequency", hz)
		hz = servo.DefaultFrequency
	}
	_ = c.engine.SetFrequency(hz)
	return Response{Error: hz}
}

func (c *Controller) drive(v servo.Velocity) Response {
	results, err := c.engine.Drive(v)
	if err != nil {
		return Response{Error: -1}
	}
	return Response{Failed: failed(results)}
}

func (c *Controller) configureCalibration(p ServosConfig) Response {
	if !servo.ValidBoard(c.engine.CurrentBoard()) {
		c.logger.Errorw("invalid board number, board numbers must be between 1 and 62", "board", c.engine.CurrentBoard())
		return Response{Error: -1}
	}
	resp := Response{Failed: failed(c.engine.ConfigureAll(p.Servos))}
	if n := len(resp.Failed); n > 0 {
		resp.Error = resp.Failed[n-1].Channel
	}
	return resp
}

func (c *Controller) configureDriveMode(p DriveMode) Response {
	topology, err := servo.ParseTopology(p.Topology)
	if err != nil {
		c.logger.Errorw("invalid drive mode", "mode", p.Topology)
		return Response{Error: -1}
	}
	if err := c.engine.SetDriveMode(topology, p.Scale); err != nil {
		return Response{Error: -1}
	}
	var results []servo.Result
	for _, r := range p.Roles {
		results = append(results, servo.Result{
			Channel: r.Channel,
			Err:     c.engine.AssignRole(r.Channel, servo.Role(r.Role)),
		})
	}
	resp := Response{Failed: failed(results)}
	if n := len(resp.Failed); n > 0 {
		resp.Error = resp.Failed[n-1].Channel
	}
	return resp
}
