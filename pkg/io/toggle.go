package io

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// SetPinState drives an output line high (1) or low (0), requesting it on first use.
func (io *IO) SetPinState(offset int, state int) error {
	io.mu.Lock()
	defer io.mu.Unlock()
	l, ok := io.lines[offset]
	if !ok {
		var err error
		l, err = io.chip.RequestLine(offset, gpiocdev.AsOutput(state))
		if err != nil {
			return fmt.Errorf("requesting output line %d: %w", offset, err)
		}
		io.lines[offset] = l
	}
	return l.SetValue(state)
}

// OutputEnable is the active low OE pin wired to every board on the bus. While disabled all
// PWM outputs are high impedance regardless of register contents.
type OutputEnable struct {
	io     *IO
	offset int
}

// OutputEnable returns the OE pin on line offset.
func (io *IO) OutputEnable(offset int) *OutputEnable {
	return &OutputEnable{io: io, offset: offset}
}

// Enable lets the boards drive their outputs.
func (o *OutputEnable) Enable() error {
	o.io.logger.Infow("pwm outputs enabled", "line", o.offset)
	return o.io.SetPinState(o.offset, 0)
}

// Disable puts every output in high impedance.
func (o *OutputEnable) Disable() error {
	o.io.logger.Infow("pwm outputs disabled", "line", o.offset)
	return o.io.SetPinState(o.offset, 1)
}
