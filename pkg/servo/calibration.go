package servo

import (
	"fmt"

	"github.com/Seann-Moser/i2cpwm/pkg/pca9685"
)

// Role is the wheel position a channel drives in the active topology.
type Role int

const (
	RoleNone Role = iota
	RoleLeftFront
	RoleRightFront
	RoleLeftRear
	RoleRightRear

	roleCount
)

// ValidRole reports whether r is one of the defined roles, RoleNone included.
func ValidRole(r Role) bool {
	return r >= RoleNone && r < roleCount
}

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleLeftFront:
		return "left-front"
	case RoleRightFront:
		return "right-front"
	case RoleLeftRear:
		return "left-rear"
	case RoleRightRear:
		return "right-rear"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Calibration maps the proportional range of one channel onto pulse ticks.
type Calibration struct {
	// Center is the tick for a proportional value of 0, -1 when unset.
	Center int `json:"center"`
	// Range is the tick span between -1000 and 1000, -1 when unset.
	Range int `json:"range"`
	// Direction is +1 or -1.
	Direction int  `json:"direction"`
	Role      Role `json:"role"`
}

func unsetCalibration() Calibration {
	return Calibration{Center: -1, Range: -1, Direction: 1, Role: RoleNone}
}

// Configured reports whether the calibration can be used for proportional values.
func (c Calibration) Configured() bool {
	return c.Center >= 0 && c.Range >= 0
}

// Map converts a proportional value to a tick. Integer division truncates toward zero.
func (c Calibration) Map(value int) int {
	return c.Direction*((c.Range/2*value)/1000) + c.Center
}

// ChannelConfig is one entry of a calibration request.
type ChannelConfig struct {
	Channel   int `json:"channel"`
	Center    int `json:"center"`
	Range     int `json:"range"`
	Direction int `json:"direction"`
}

// Validate checks the channel number, the tick bounds and that center ± range/2 stays within
// the period.
func (c ChannelConfig) Validate() error {
	switch {
	case !ValidChannel(c.Channel):
		return validationError("servo number %d must be between 1 and 16", c.Channel)
	case c.Center < 0 || c.Center > pca9685.MaxTick:
		return validationError("center value %d must be between 0 and 4096", c.Center)
	case c.Range < 0 || c.Range > pca9685.MaxTick:
		return validationError("range value %d must be between 0 and 4096", c.Range)
	case c.Center-c.Range/2 < 0 || c.Center+c.Range/2 > pca9685.MaxTick:
		return validationError("center %d ± %d must stay between 0 and 4096", c.Center, c.Range/2)
	case c.Direction != 1 && c.Direction != -1:
		return validationError("direction %d must be 1 or -1", c.Direction)
	}
	return nil
}

func (e *Engine) requireBoard() error {
	if !ValidBoard(e.active) {
		e.logger.Errorw("invalid board number, board numbers must be between 1 and 62", "board", e.active)
		return validationError("no active board")
	}
	return nil
}

// Configure stores the calibration of one channel on the active board and clears its role.
func (e *Engine) Configure(c ChannelConfig) error {
	if err := e.requireBoard(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		e.logger.Errorw("invalid servo configuration", "channel", c.Channel, "error", err)
		return err
	}
	e.channels[e.active-1][c.Channel-1] = Calibration{
		Center:    c.Center,
		Range:     c.Range,
		Direction: c.Direction,
		Role:      RoleNone,
	}
	e.logger.Infow("servo configured", "board", e.active, "channel", c.Channel,
		"center", c.Center, "range", c.Range, "direction", c.Direction)
	return nil
}

// ConfigureAll applies every entry independently; invalid entries are skipped.
func (e *Engine) ConfigureAll(cfgs []ChannelConfig) []Result {
	results := make([]Result, 0, len(cfgs))
	for _, c := range cfgs {
		results = append(results, Result{Channel: c.Channel, Err: e.Configure(c)})
	}
	return results
}

// Calibration returns the calibration of a channel on the active board.
func (e *Engine) Calibration(channel int) (Calibration, error) {
	if err := e.requireBoard(); err != nil {
		return Calibration{}, err
	}
	if !ValidChannel(channel) {
		return Calibration{}, validationError("channel %d", channel)
	}
	return e.channels[e.active-1][channel-1], nil
}

// AssignRole sets the drive role of a channel on the active board. A topology must be set first.
func (e *Engine) AssignRole(channel int, role Role) error {
	if err := e.requireBoard(); err != nil {
		return err
	}
	if e.drive.Topology == TopologyUndefined {
		e.logger.Errorw("drive mode not set", "channel", channel)
		return validationError("drive mode not set")
	}
	if !ValidChannel(channel) {
		e.logger.Errorw("invalid servo number, servo numbers must be between 1 and 16", "channel", channel)
		return validationError("channel %d", channel)
	}
	if !ValidRole(role) {
		e.logger.Errorw("invalid drive position, positions are 0 = non-drive, 1 = left front, "+
			"2 = right front, 3 = left rear, and 4 = right rear", "channel", channel, "position", int(role))
		return validationError("drive position %d", int(role))
	}
	e.channels[e.active-1][channel-1].Role = role
	e.logger.Infow("drive position assigned", "board", e.active, "channel", channel, "role", role)
	return nil
}
