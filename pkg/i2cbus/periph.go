package i2cbus

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

type periphBus struct {
	name string
	bus  i2c.BusCloser
	dev  *i2c.Dev
}

// OpenPeriph opens an I2C bus through periph.io. An empty name opens the first bus found.
func OpenPeriph(name string) (Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrapf(ErrBusOpen, "host init: %v", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(ErrBusOpen, "%q: %v", name, err)
	}
	return &periphBus{name: name, bus: b}, nil
}

// SelectDevice points subsequent register calls at addr. periph has no separate slave select
// so the device is probed with a MODE1 read to find out whether it answers.
func (p *periphBus) SelectDevice(addr uint16) error {
	dev := &i2c.Dev{Bus: p.bus, Addr: addr}
	r := make([]byte, 1)
	if err := dev.Tx([]byte{0x00}, r); err != nil {
		return errors.Wrapf(err, "no device at 0x%02X on %s", addr, p.bus)
	}
	p.dev = dev
	return nil
}

func (p *periphBus) WriteRegister(reg, value byte) error {
	if p.dev == nil {
		return errors.New("no device selected")
	}
	return p.dev.Tx([]byte{reg, value}, nil)
}

func (p *periphBus) ReadRegister(reg byte) (byte, error) {
	if p.dev == nil {
		return 0, errors.New("no device selected")
	}
	r := make([]byte, 1)
	if err := p.dev.Tx([]byte{reg}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (p *periphBus) Close() error {
	return p.bus.Close()
}
