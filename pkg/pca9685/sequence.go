package pca9685

import (
	"fmt"
	"time"
)

// Op is the kind of a sequence step.
type Op int

const (
	// OpWrite writes Value to Reg.
	OpWrite Op = iota
	// OpUpdate reads Reg, clears the Clear bits, sets the Value bits and writes it back.
	OpUpdate
	// OpDelay waits for Delay.
	OpDelay
)

// Step is one entry of a register sequence.
type Step struct {
	Op    Op
	Reg   Register
	Value byte
	Clear byte
	Delay time.Duration
	// Desc is logged when the step fails.
	Desc string
}

func (s Step) String() string {
	switch s.Op {
	case OpWrite:
		return fmt.Sprintf("write %s=0x%02X", s.Reg, s.Value)
	case OpUpdate:
		return fmt.Sprintf("update %s &^0x%02X |0x%02X", s.Reg, s.Clear, s.Value)
	case OpDelay:
		return fmt.Sprintf("wait %s", s.Delay)
	}
	return "unknown step"
}

func write(reg Register, value byte, desc string) Step {
	return Step{Op: OpWrite, Reg: reg, Value: value, Desc: desc}
}

func wait() Step {
	return Step{Op: OpDelay, Delay: OscillatorDelay}
}

// ActivationSteps is the one time bring-up of a chip: totem pole outputs, all call enabled,
// wake from sleep and every output forced off.
func ActivationSteps() []Step {
	steps := []Step{
		write(Mode2, OutDrv, "enable totem pole outputs"),
		write(Mode1, AllCall, "enable all call"),
		wait(),
		{Op: OpUpdate, Reg: Mode1, Clear: Sleep, Desc: "leave low power mode"},
		wait(),
	}
	for _, w := range AllChannelWrites(0, 0) {
		steps = append(steps, write(w.Reg, w.Value, "switch all channels off"))
	}
	return steps
}

// FrequencySteps changes PRE_SCALE given the MODE1 value read before the change. PRE_SCALE can
// only be written while the oscillator is stopped, so the chip is put to sleep first and
// restarted once the oscillator has settled.
func FrequencySteps(oldMode, prescale byte) []Step {
	sleeping := (oldMode &^ Restart) | Sleep
	return []Step{
		write(Mode1, sleeping, "enter sleep mode"),
		write(Prescale, prescale, "set prescale"),
		write(Mode1, oldMode, "leave sleep mode"),
		wait(),
		write(Mode1, oldMode|Restart, "restart outputs"),
	}
}
