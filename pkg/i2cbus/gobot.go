package i2cbus

import (
	"github.com/pkg/errors"
	"gobot.io/x/gobot/drivers/i2c"
	"gobot.io/x/gobot/platforms/raspi"
)

// gobotBus keeps one connection per address. Connections handed out by the adaptor share the
// bus device, so they are never closed individually; Finalize closes the device once.
type gobotBus struct {
	adaptor *raspi.Adaptor
	number  int
	conns   map[uint16]i2c.Connection
	conn    i2c.Connection
}

// OpenGobot opens I2C bus number on a Raspberry Pi through the gobot raspi adaptor. A negative
// number uses the adaptor default.
func OpenGobot(number int) (Bus, error) {
	r := raspi.NewAdaptor()
	if err := r.Connect(); err != nil {
		return nil, errors.Wrapf(ErrBusOpen, "raspi adaptor: %v", err)
	}
	if number < 0 {
		number = r.GetDefaultBus()
	}
	return &gobotBus{adaptor: r, number: number, conns: map[uint16]i2c.Connection{}}, nil
}

// SelectDevice points subsequent register calls at addr after probing it with a MODE1 read.
// A device that does not answer leaves the previous selection in place.
func (g *gobotBus) SelectDevice(addr uint16) error {
	conn, ok := g.conns[addr]
	if !ok {
		var err error
		conn, err = g.adaptor.GetConnection(int(addr), g.number)
		if err != nil {
			return errors.Wrapf(err, "bus %d", g.number)
		}
		g.conns[addr] = conn
	}
	if _, err := conn.ReadByteData(0x00); err != nil {
		return errors.Wrapf(err, "no device at 0x%02X on bus %d", addr, g.number)
	}
	g.conn = conn
	return nil
}

func (g *gobotBus) WriteRegister(reg, value byte) error {
	if g.conn == nil {
		return errors.New("no device selected")
	}
	return g.conn.WriteByteData(reg, value)
}

func (g *gobotBus) ReadRegister(reg byte) (byte, error) {
	if g.conn == nil {
		return 0, errors.New("no device selected")
	}
	return g.conn.ReadByteData(reg)
}

func (g *gobotBus) Close() error {
	g.conn = nil
	g.conns = map[uint16]i2c.Connection{}
	return g.adaptor.Finalize()
}
