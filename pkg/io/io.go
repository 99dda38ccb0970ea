package io

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
	"github.com/warthog618/go-gpiocdev/device/rpi"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// IO owns the GPIO lines used next to the PWM boards: the shared output enable pin and the
// emergency stop button.
type IO struct {
	chip   *gpiocdev.Chip
	mu     sync.Mutex
	lines  map[int]*gpiocdev.Line
	logger *zap.SugaredLogger
}

// New opens the GPIO chip, e.g. "gpiochip0".
func New(chipset string, logger *zap.SugaredLogger) (*IO, error) {
	c, err := gpiocdev.NewChip(chipset)
	if err != nil {
		return nil, fmt.Errorf("opening chip %s: %w", chipset, err)
	}
	logger.Debugw("gpio chip opened", "chip", c.Name, "lines", c.Lines())
	return &IO{
		chip:   c,
		lines:  make(map[int]*gpiocdev.Line),
		logger: logger,
	}, nil
}

// PinOffset converts a pin name such as "GPIO17" or "J8p11" to a line offset. An empty name
// returns -1.
func PinOffset(name string) (int, error) {
	if name == "" {
		return -1, nil
	}
	return rpi.Pin(name)
}

// Close releases every requested line, leaving outputs as inputs, and closes the chip.
func (io *IO) Close() error {
	io.mu.Lock()
	defer io.mu.Unlock()
	var err error
	for _, l := range io.lines {
		err = multierr.Append(err, l.Reconfigure(gpiocdev.AsInput))
		err = multierr.Append(err, l.Close())
	}
	io.lines = map[int]*gpiocdev.Line{}
	return multierr.Append(err, io.chip.Close())
}
