// Package servo drives RC servos and continuous rotation motors attached to PCA9685 boards.
//
// An Engine owns all controller state: which boards have been brought up, which one is
// addressed, the PWM frequency, per channel calibration and the drive topology. It has no
// locking of its own; callers must serialise every call (see controller.Controller).
package servo

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Seann-Moser/i2cpwm/pkg/i2cbus"
	"github.com/Seann-Moser/i2cpwm/pkg/pca9685"
)

const (
	// NoBoard is returned by CurrentBoard before any board was activated.
	NoBoard = 0
	// DefaultBoard is activated at startup.
	DefaultBoard = 1
)

// Engine is the servo control engine for every board on one bus.
type Engine struct {
	bus    i2cbus.Bus
	logger *zap.SugaredLogger
	clock  clock.Clock

	active      int
	initialized [pca9685.MaxBoards]bool
	frequency   int
	channels    [pca9685.MaxBoards][pca9685.Channels]Calibration
	drive       DriveMode
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for oscillator delays.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New returns an engine with no active board and every channel uncalibrated.
func New(bus i2cbus.Bus, logger *zap.SugaredLogger, opts ...Option) *Engine {
	e := &Engine{
		bus:       bus,
		logger:    logger,
		clock:     clock.New(),
		active:    NoBoard,
		frequency: DefaultFrequency,
		drive:     DriveMode{Topology: TopologyUndefined, Scale: 1},
	}
	for b := range e.channels {
		for c := range e.channels[b] {
			e.channels[b][c] = unsetCalibration()
		}
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Init activates board and sets the PWM frequency, as done once at startup.
func (e *Engine) Init(board, hz int) error {
	if err := e.ActivateBoard(board); err != nil {
		return err
	}
	return e.SetFrequency(hz)
}

// Close stops every board and closes the bus.
func (e *Engine) Close() error {
	return multierr.Combine(e.StopAll(), e.bus.Close())
}

// run executes a register sequence against the selected device. Every step is attempted; the
// failures are combined into the returned error.
func (e *Engine) run(steps []pca9685.Step) error {
	var errs error
	for _, s := range steps {
		switch s.Op {
		case pca9685.OpWrite:
			errs = multierr.Append(errs, e.write(s.Reg, s.Value, s.Desc))
		case pca9685.OpUpdate:
			v, err := e.read(s.Reg)
			if err != nil {
				e.logger.Errorw("failed to "+s.Desc, "board", e.active, "error", err)
				errs = multierr.Append(errs, err)
				continue
			}
			errs = multierr.Append(errs, e.write(s.Reg, (v&^s.Clear)|s.Value, s.Desc))
		case pca9685.OpDelay:
			e.clock.Sleep(s.Delay)
		}
	}
	return errs
}

func (e *Engine) write(reg pca9685.Register, value byte, desc string) error {
	e.logger.Debugw("register write", "board", e.active, "register", reg, "value", value)
	if err := e.bus.WriteRegister(byte(reg), value); err != nil {
		e.logger.Errorw("failed to "+desc, "board", e.active, "register", reg, "error", err)
		return hardwareWriteError(e.active, reg, err)
	}
	return nil
}

func (e *Engine) read(reg pca9685.Register) (byte, error) {
	v, err := e.bus.ReadRegister(byte(reg))
	if err != nil {
		return 0, hardwareReadError(e.active, reg, err)
	}
	e.logger.Debugw("register read", "board", e.active, "register", reg, "value", v)
	return v, nil
}
