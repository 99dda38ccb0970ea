package servo

import (
	"fmt"
	"math"
)

// Topology is the drive layout used to turn a velocity into wheel speeds.
type Topology int

const (
	TopologyUndefined Topology = iota
	// TopologyAckerman drives one set of wheels, steering is done by a separate servo.
	TopologyAckerman
	// TopologyDifferential steers through the speed difference of left and right wheels.
	TopologyDifferential
	// TopologyMecanum adds lateral motion through the front/rear wheel mix.
	TopologyMecanum
)

func (t Topology) String() string {
	switch t {
	case TopologyUndefined:
		return "undefined"
	case TopologyAckerman:
		return "ackerman"
	case TopologyDifferential:
		return "differential"
	case TopologyMecanum:
		return "mecanum"
	}
	return fmt.Sprintf("topology(%d)", int(t))
}

// ParseTopology accepts "ackerman", "differential" or "mecanum".
func ParseTopology(s string) (Topology, error) {
	switch s {
	case "ackerman":
		return TopologyAckerman, nil
	case "differential":
		return TopologyDifferential, nil
	case "mecanum":
		return TopologyMecanum, nil
	}
	return TopologyUndefined, validationError("drive mode %q must be one of ackerman, differential, or mecanum", s)
}

// DriveMode is the drive configuration shared by every board.
type DriveMode struct {
	Topology Topology
	// Scale is validated and kept but does not change the output.
	Scale float64
}

// Vector3 is a 3D vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Velocity is a drive command. Only Linear.X, Linear.Y and Angular.Z are used.
type Velocity struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// RoleSpeeds holds a proportional speed per drive role. The RoleNone slot is unused.
type RoleSpeeds [roleCount]int

// Speed returns the speed of role r.
func (s RoleSpeeds) Speed(r Role) int {
	if !ValidRole(r) {
		return 0
	}
	return s[r]
}

// motion is a velocity after easing: non-negative magnitudes plus a sign per axis.
type motion struct {
	x, y, r    int
	sx, sy, sr int
}

type mixer func(m motion) RoleSpeeds

var mixers = map[Topology]mixer{
	TopologyAckerman:     mixAckerman,
	TopologyDifferential: mixDifferential,
	TopologyMecanum:      mixMecanum,
}

func mixAckerman(m motion) RoleSpeeds {
	var s RoleSpeeds
	s[RoleLeftFront] = m.x * m.sx
	return s
}

func mixDifferential(m motion) RoleSpeeds {
	var s RoleSpeeds
	s[RoleLeftFront] = m.x * m.sx
	s[RoleRightFront] = (m.x - m.r) * m.sx
	if m.sr < 0 {
		s[RoleLeftFront], s[RoleRightFront] = s[RoleRightFront], s[RoleLeftFront]
	}
	return s
}

func mixMecanum(m motion) RoleSpeeds {
	var s RoleSpeeds
	forward := m.x * m.sx
	turning := (m.x - m.r) * m.sx
	lateral := m.y * m.sy
	s[RoleLeftFront] = clampSpeed(forward - lateral)
	s[RoleRightFront] = clampSpeed(turning + lateral)
	s[RoleLeftRear] = clampSpeed(forward + lateral)
	s[RoleRightRear] = clampSpeed(turning - lateral)
	return s
}

func clampSpeed(v int) int {
	if v > MaxProportional {
		return MaxProportional
	}
	if v < MinProportional {
		return MinProportional
	}
	return v
}

// Ease remaps a speed magnitude in [0,1000] along a cosine curve that is shallow at stop and at
// full speed and steepest in between. Values outside the range are clamped first.
func Ease(m float64) float64 {
	m = math.Max(0, math.Min(MaxProportional, m))
	return (math.Cos(math.Pi*(MaxProportional-m)/MaxProportional) + 1) / 2 * MaxProportional
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

// Mix converts a velocity into per role speeds for topology t.
func Mix(t Topology, v Velocity) (RoleSpeeds, error) {
	mix, ok := mixers[t]
	if !ok {
		return RoleSpeeds{}, validationError("drive mode %s cannot drive", t)
	}
	m := motion{
		x:  int(Ease(math.Abs(v.Linear.X))),
		y:  int(Ease(math.Abs(v.Linear.Y))),
		r:  int(Ease(math.Abs(v.Angular.Z))) / 2,
		sx: sign(v.Linear.X),
		sy: sign(v.Linear.Y),
		sr: sign(v.Angular.Z),
	}
	return mix(m), nil
}

// DriveMode returns the current drive configuration.
func (e *Engine) DriveMode() DriveMode {
	return e.drive
}

// SetDriveMode sets the drive topology and scale used by Drive.
func (e *Engine) SetDriveMode(t Topology, scale float64) error {
	if _, ok := mixers[t]; !ok {
		e.logger.Errorw("invalid drive mode", "mode", t)
		return validationError("drive mode %s", t)
	}
	if scale <= 0 {
		e.logger.Errorw("invalid scale, the scalar for drive commands must be greater than 0.0", "scale", scale)
		return validationError("scale %f", scale)
	}
	e.drive = DriveMode{Topology: t, Scale: scale}
	e.logger.Infow("drive mode set", "mode", t, "scale", scale)
	return nil
}

// Drive converts v into wheel speeds and sets every channel of the active board that has a
// drive role. Channels without a role are left alone. The returned results carry per channel
// failures; the error is set only when nothing could be driven.
func (e *Engine) Drive(v Velocity) ([]Result, error) {
	e.logger.Infow("drive", "linear", v.Linear, "angular", v.Angular)
	if e.drive.Topology == TopologyUndefined {
		e.logger.Errorw("drive mode not set")
		return nil, validationError("drive mode not set")
	}
	speeds, err := Mix(e.drive.Topology, v)
	if err != nil {
		e.logger.Errorw("unrecognized drive mode set", "mode", e.drive.Topology)
		return nil, err
	}
	if err := e.requireBoard(); err != nil {
		return nil, err
	}
	e.logger.Infow("drive speeds", "mode", e.drive.Topology,
		"left_front", speeds[RoleLeftFront], "right_front", speeds[RoleRightFront],
		"left_rear", speeds[RoleLeftRear], "right_rear", speeds[RoleRightRear])

	var results []Result
	for i, cal := range e.channels[e.active-1] {
		if cal.Role == RoleNone {
			continue
		}
		ch := i + 1
		results = append(results, Result{Channel: ch, Err: e.SetProportional(ch, speeds.Speed(cal.Role))})
	}
	return results, nil
}
