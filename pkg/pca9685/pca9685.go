// Package pca9685 describes the register layout of the PCA9685 16 channel, 12 bit PWM controller
// and the write sequences needed to bring a chip up and to change its output frequency.
//
// Nothing in this package touches a bus. Sequences are returned as step lists which the servo
// engine executes against an i2cbus.Bus, so the ordering and delay requirements can be checked
// on their own.
package pca9685

import (
	"fmt"
	"math"
	"time"
)

// Register is a PCA9685 register offset.
type Register byte

// Register map.
const (
	Mode1       Register = 0x00
	Mode2       Register = 0x01
	SubAddr1    Register = 0x02
	SubAddr2    Register = 0x03
	SubAddr3    Register = 0x04
	AllCallAddr Register = 0x05
	LED0OnL     Register = 0x06
	LED0OnH     Register = 0x07
	LED0OffL    Register = 0x08
	LED0OffH    Register = 0x09
	AllLEDOnL   Register = 0xFA
	AllLEDOnH   Register = 0xFB
	AllLEDOffL  Register = 0xFC
	AllLEDOffH  Register = 0xFD
	Prescale    Register = 0xFE
)

// Mode register bits.
const (
	Restart byte = 0x80 // MODE1
	Sleep   byte = 0x10 // MODE1, low power mode
	AllCall byte = 0x01 // MODE1, respond to the all call address
	Invrt   byte = 0x10 // MODE2, invert output logic
	OutDrv  byte = 0x04 // MODE2, totem pole outputs
)

const (
	// BaseAddress is the bus address of board slot 1.
	BaseAddress uint16 = 0x40
	// Channels per chip.
	Channels = 16
	// MaxBoards is the number of addressable board slots.
	MaxBoards = 62
	// MaxTick is the largest on/off tick accepted for an interval.
	MaxTick = 4096
	// OscillatorHz is the internal oscillator frequency.
	OscillatorHz = 25_000_000
	// Resolution is the number of ticks in one PWM period.
	Resolution = 4096
	// OscillatorDelay is how long the oscillator needs to settle after leaving sleep.
	OscillatorDelay = 5 * time.Millisecond

	minPrescale = 3
	maxPrescale = 255
)

func (r Register) String() string {
	switch r {
	case Mode1:
		return "MODE1"
	case Mode2:
		return "MODE2"
	case Prescale:
		return "PRE_SCALE"
	case AllLEDOnL, AllLEDOnH, AllLEDOffL, AllLEDOffH:
		return fmt.Sprintf("ALL_LED+%d", byte(r-AllLEDOnL))
	}
	if r >= LED0OnL && r < AllLEDOnL {
		n := byte(r - LED0OnL)
		return fmt.Sprintf("LED%d+%d", n/4, n%4)
	}
	return fmt.Sprintf("0x%02X", byte(r))
}

// Address returns the bus address of a one based board slot.
func Address(slot int) uint16 {
	return BaseAddress + uint16(slot-1)
}

// Write is a single register write.
type Write struct {
	Reg   Register
	Value byte
}

// ChannelBase returns the ON_L register of a one based channel.
func ChannelBase(channel int) Register {
	return LED0OnL + Register(4*(channel-1))
}

// IntervalWrites splits an on/off pair into the four byte writes starting at base.
func IntervalWrites(base Register, on, off int) [4]Write {
	return [4]Write{
		{Reg: base, Value: byte(on & 0xFF)},
		{Reg: base + 1, Value: byte(on >> 8)},
		{Reg: base + 2, Value: byte(off & 0xFF)},
		{Reg: base + 3, Value: byte(off >> 8)},
	}
}

// ChannelWrites returns the writes that set the interval of a one based channel.
func ChannelWrites(channel, on, off int) [4]Write {
	return IntervalWrites(ChannelBase(channel), on, off)
}

// AllChannelWrites returns the writes that set the interval of every channel at once.
func AllChannelWrites(on, off int) [4]Write {
	return IntervalWrites(AllLEDOnL, on, off)
}

// PrescaleValue returns round(25MHz / (4096 * hz) - 1) without clamping to the register width.
func PrescaleValue(hz int) int {
	v := float64(OscillatorHz) / float64(Resolution) / float64(hz)
	return int(math.Floor(v - 1 + 0.5))
}

// PrescaleFor returns the PRE_SCALE register value for hz, clamped to what the chip accepts.
func PrescaleFor(hz int) byte {
	p := PrescaleValue(hz)
	if p < minPrescale {
		p = minPrescale
	}
	if p > maxPrescale {
		p = maxPrescale
	}
	return byte(p)
}

// OutputFrequency is the PWM frequency the chip runs at with prescale loaded. Requests below
// about 24Hz saturate the register and run at OutputFrequency(255).
func OutputFrequency(prescale byte) float64 {
	return float64(OscillatorHz) / float64(Resolution) / float64(int(prescale)+1)
}
