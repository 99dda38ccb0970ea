package io

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

// SweepConfig describes a bench sweep of one channel.
type SweepConfig struct {
	Bus       string
	Address   uint16
	Channel   int // zero based, as the chip numbers it
	From, To  int
	Step      int
	Frequency physic.Frequency
	Delay     time.Duration
}

// pwm is the part of the periph pca9685 device a sweep needs.
type pwm interface {
	SetPwm(channel int, on, off gpio.Duty) error
}

// Sweep drives one channel straight through the periph pca9685 driver, bypassing the servo
// engine, moving it from From to To and back. It is meant for checking wiring and finding
// center and range values before calibrating.
func Sweep(ctx context.Context, cfg SweepConfig) error {
	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return err
	}
	defer bus.Close()
	dev, err := openDevice(bus, cfg)
	if err != nil {
		return err
	}
	defer dev.SetPwm(cfg.Channel, 0, 0)
	return sweep(ctx, dev, cfg)
}

func openDevice(bus i2c.Bus, cfg SweepConfig) (*pca9685.Dev, error) {
	dev, err := pca9685.NewI2C(bus, cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("pca9685 at 0x%02X: %w", cfg.Address, err)
	}
	if err := dev.SetPwmFreq(cfg.Frequency); err != nil {
		return nil, err
	}
	return dev, nil
}

// sweepPoints returns the ticks visited going From→To→From.
func sweepPoints(from, to, step int) []int {
	if step <= 0 {
		step = 1
	}
	if to < from {
		step = -step
	}
	var out []int
	for v := from; (step > 0 && v <= to) || (step < 0 && v >= to); v += step {
		out = append(out, v)
	}
	if len(out) == 0 || out[len(out)-1] != to {
		out = append(out, to)
	}
	for i := len(out) - 2; i >= 0; i-- {
		out = append(out, out[i])
	}
	return out
}

func sweep(ctx context.Context, dev pwm, cfg SweepConfig) error {
	for _, v := range sweepPoints(cfg.From, cfg.To, cfg.Step) {
		if err := dev.SetPwm(cfg.Channel, 0, gpio.Duty(v)); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Delay):
		}
	}
	return nil
}
