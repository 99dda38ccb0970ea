// Package i2cbus provides single byte register access to the device currently selected on an
// I2C bus.
package i2cbus

import (
	"github.com/pkg/errors"
)

// ErrBusOpen is returned when the bus device cannot be acquired.
var ErrBusOpen = errors.New("failed to open i2c bus")

// Bus talks to one device at a time. SelectDevice changes which device the register calls
// address.
type Bus interface {
	SelectDevice(addr uint16) error
	WriteRegister(reg, value byte) error
	ReadRegister(reg byte) (byte, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendPeriph = "periph"
	BackendGobot  = "gobot"
)

// Open opens a bus with the named backend. name is the periph bus name (e.g. "I2C1" or
// "/dev/i2c-1"); number is the gobot bus number, negative for the adaptor default.
func Open(backend, name string, number int) (Bus, error) {
	switch backend {
	case BackendPeriph, "":
		return OpenPeriph(name)
	case BackendGobot:
		return OpenGobot(number)
	default:
		return nil, errors.Wrapf(ErrBusOpen, "unknown backend %q", backend)
	}
}
