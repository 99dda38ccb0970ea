package servo

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/Seann-Moser/i2cpwm/pkg/i2cbus/fakebus"
	"github.com/Seann-Moser/i2cpwm/pkg/logging"
	"github.com/Seann-Moser/i2cpwm/pkg/pca9685"
)

// sleepRecorder advances a mock clock instead of blocking and remembers each wait.
type sleepRecorder struct {
	*clock.Mock
	slept []time.Duration
}

func (c *sleepRecorder) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.Mock.Add(d)
}

func newTestEngine(t *testing.T) (*Engine, *fakebus.Bus, *sleepRecorder) {
	t.Helper()
	bus := fakebus.New()
	clk := &sleepRecorder{Mock: clock.NewMock()}
	return New(bus, logging.NewTestLogger(t), WithClock(clk)), bus, clk
}

func newActiveEngine(t *testing.T) (*Engine, *fakebus.Bus) {
	t.Helper()
	e, bus, _ := newTestEngine(t)
	test.That(t, e.ActivateBoard(1), test.ShouldBeNil)
	bus.Reset()
	return e, bus
}

func write(addr uint16, reg pca9685.Register, v byte) fakebus.Tx {
	return fakebus.Tx{Kind: fakebus.Write, Addr: addr, Reg: byte(reg), Value: v}
}

func TestActivateBoard(t *testing.T) {
	e, bus, clk := newTestEngine(t)
	test.That(t, e.CurrentBoard(), test.ShouldEqual, NoBoard)

	test.That(t, e.ActivateBoard(1), test.ShouldBeNil)
	test.That(t, e.CurrentBoard(), test.ShouldEqual, 1)
	test.That(t, e.Initialized(), test.ShouldResemble, []int{1})
	test.That(t, bus.Selects(), test.ShouldResemble, []fakebus.Tx{{Kind: fakebus.Select, Addr: 0x40}})
	test.That(t, bus.Writes(), test.ShouldResemble, []fakebus.Tx{
		write(0x40, pca9685.Mode2, pca9685.OutDrv),
		write(0x40, pca9685.Mode1, pca9685.AllCall),
		write(0x40, pca9685.Mode1, pca9685.AllCall),
		write(0x40, pca9685.AllLEDOnL, 0),
		write(0x40, pca9685.AllLEDOnH, 0),
		write(0x40, pca9685.AllLEDOffL, 0),
		write(0x40, pca9685.AllLEDOffH, 0),
	})
	test.That(t, clk.slept, test.ShouldHaveLength, 2)
	for _, d := range clk.slept {
		test.That(t, d, test.ShouldBeGreaterThanOrEqualTo, 5*time.Millisecond)
	}

	t.Run("same board twice is a no-op", func(t *testing.T) {
		bus.Reset()
		test.That(t, e.ActivateBoard(1), test.ShouldBeNil)
		test.That(t, bus.Log, test.ShouldBeEmpty)
	})

	t.Run("bring-up happens once per board", func(t *testing.T) {
		test.That(t, e.ActivateBoard(3), test.ShouldBeNil)
		test.That(t, e.ActivateBoard(1), test.ShouldBeNil)
		bus.Reset()
		test.That(t, e.ActivateBoard(3), test.ShouldBeNil)
		test.That(t, bus.Selects(), test.ShouldResemble, []fakebus.Tx{{Kind: fakebus.Select, Addr: 0x42}})
		test.That(t, bus.Writes(), test.ShouldBeEmpty)
		test.That(t, e.Initialized(), test.ShouldResemble, []int{1, 3})
	})
}

func TestActivateBoardClearsSleep(t *testing.T) {
	e, bus, _ := newTestEngine(t)
	bus.Regs[0x40] = map[byte]byte{}

	// reject the all call write and leave the chip asleep with RESTART pending; waking it must
	// clear SLEEP and keep the other bits
	bus.FailWrite = func(addr uint16, reg byte) bool {
		if reg == byte(pca9685.Mode1) && bus.Reg(addr, reg) == 0 {
			bus.Regs[addr][reg] = pca9685.Sleep | pca9685.AllCall | pca9685.Restart
			return true
		}
		return false
	}
	err := e.ActivateBoard(1)
	test.That(t, errors.Is(err, ErrHardwareWrite), test.ShouldBeTrue)
	test.That(t, bus.Reg(0x40, byte(pca9685.Mode1)), test.ShouldEqual, pca9685.AllCall|pca9685.Restart)
	test.That(t, e.Initialized(), test.ShouldResemble, []int{1})
}

func TestActivateBoardInvalid(t *testing.T) {
	e, bus, _ := newTestEngine(t)
	for _, b := range []int{-1, 0, 63, 1000} {
		err := e.ActivateBoard(b)
		test.That(t, errors.Is(err, ErrValidation), test.ShouldBeTrue)
	}
	test.That(t, bus.Log, test.ShouldBeEmpty)
	test.That(t, e.CurrentBoard(), test.ShouldEqual, NoBoard)
}

func TestActivateBoardSelectFailure(t *testing.T) {
	e, bus := newActiveEngine(t)
	bus.Missing[0x41] = true

	err := e.ActivateBoard(2)
	test.That(t, errors.Is(err, ErrHardwareSelect), test.ShouldBeTrue)
	test.That(t, e.CurrentBoard(), test.ShouldEqual, 1)
	test.That(t, e.Initialized(), test.ShouldResemble, []int{1})
	test.That(t, bus.Writes(), test.ShouldBeEmpty)
}

func TestActivateBoardWriteFailuresAreBestEffort(t *testing.T) {
	e, bus, _ := newTestEngine(t)
	bus.FailWrite = func(addr uint16, reg byte) bool { return reg == byte(pca9685.Mode2) }

	err := e.ActivateBoard(1)
	test.That(t, errors.Is(err, ErrHardwareWrite), test.ShouldBeTrue)
	test.That(t, e.CurrentBoard(), test.ShouldEqual, 1)
	test.That(t, e.Initialized(), test.ShouldResemble, []int{1})
	// every write after the failed one still went out
	test.That(t, bus.Writes(), test.ShouldHaveLength, 6)
}

func TestSetChannel(t *testing.T) {
	e, bus := newActiveEngine(t)

	test.That(t, e.SetChannel(2, 0, 300), test.ShouldBeNil)
	test.That(t, bus.Writes(), test.ShouldResemble, []fakebus.Tx{
		write(0x40, 0x0A, 0x00),
		write(0x40, 0x0B, 0x00),
		write(0x40, 0x0C, 0x2C),
		write(0x40, 0x0D, 0x01),
	})
}

func TestSetChannelPartialWrite(t *testing.T) {
	e, bus := newActiveEngine(t)
	bus.FailWrite = func(addr uint16, reg byte) bool { return reg == 0x07 }

	err := e.SetChannel(1, 0, 300)
	test.That(t, errors.Is(err, ErrHardwareWrite), test.ShouldBeTrue)
	test.That(t, bus.Writes(), test.ShouldResemble, []fakebus.Tx{
		write(0x40, 0x06, 0x00),
		write(0x40, 0x08, 0x2C),
		write(0x40, 0x09, 0x01),
	})
}

func TestSetChannelRejectsWithoutWrites(t *testing.T) {
	e, bus, _ := newTestEngine(t)
	test.That(t, errors.Is(e.SetChannel(1, 0, 300), ErrValidation), test.ShouldBeTrue)
	test.That(t, errors.Is(e.SetAllChannels(0, 0), ErrValidation), test.ShouldBeTrue)

	test.That(t, e.ActivateBoard(1), test.ShouldBeNil)
	bus.Reset()
	for _, ch := range []int{-5, 0, 17, 100} {
		test.That(t, errors.Is(e.SetChannel(ch, 0, 300), ErrValidation), test.ShouldBeTrue)
	}
	test.That(t, errors.Is(e.SetChannel(1, 0, 4097), ErrValidation), test.ShouldBeTrue)
	test.That(t, errors.Is(e.SetChannel(1, -1, 300), ErrValidation), test.ShouldBeTrue)
	test.That(t, errors.Is(e.SetAllChannels(0, 5000), ErrValidation), test.ShouldBeTrue)
	test.That(t, bus.Log, test.ShouldBeEmpty)
}

func TestSetAllChannels(t *testing.T) {
	e, bus := newActiveEngine(t)
	test.That(t, e.SetAllChannels(0, 4096), test.ShouldBeNil)
	test.That(t, bus.Writes(), test.ShouldResemble, []fakebus.Tx{
		write(0x40, pca9685.AllLEDOnL, 0x00),
		write(0x40, pca9685.AllLEDOnH, 0x00),
		write(0x40, pca9685.AllLEDOffL, 0x00),
		write(0x40, pca9685.AllLEDOffH, 0x10),
	})
}

func TestSetFrequency(t *testing.T) {
	e, bus, clk := newTestEngine(t)
	test.That(t, e.ActivateBoard(1), test.ShouldBeNil)
	bus.Reset()
	clk.slept = nil
	bus.Regs[0x40][byte(pca9685.Mode1)] = pca9685.AllCall

	test.That(t, e.SetFrequency(50), test.ShouldBeNil)
	test.That(t, e.Frequency(), test.ShouldEqual, 50)
	test.That(t, bus.Log, test.ShouldResemble, []fakebus.Tx{
		{Kind: fakebus.Read, Addr: 0x40, Reg: byte(pca9685.Mode1), Value: pca9685.AllCall},
		write(0x40, pca9685.Mode1, pca9685.AllCall|pca9685.Sleep),
		write(0x40, pca9685.Prescale, 121),
		write(0x40, pca9685.Mode1, pca9685.AllCall),
		write(0x40, pca9685.Mode1, pca9685.AllCall|pca9685.Restart),
	})
	test.That(t, clk.slept, test.ShouldResemble, []time.Duration{pca9685.OscillatorDelay})
}

func TestSetFrequencyContinuesAfterFailure(t *testing.T) {
	e, bus := newActiveEngine(t)
	bus.FailWrite = func(addr uint16, reg byte) bool { return reg == byte(pca9685.Prescale) }

	err := e.SetFrequency(60)
	test.That(t, errors.Is(err, ErrHardwareWrite), test.ShouldBeTrue)
	test.That(t, bus.Writes(), test.ShouldHaveLength, 3)
	test.That(t, e.Frequency(), test.ShouldEqual, 60)
}

func TestSetFrequencyBelowPrescalerRange(t *testing.T) {
	e, bus := newActiveEngine(t)
	test.That(t, e.SetFrequency(MinFrequency), test.ShouldBeNil)
	test.That(t, e.Frequency(), test.ShouldEqual, MinFrequency)
	test.That(t, bus.Reg(0x40, byte(pca9685.Prescale)), test.ShouldEqual, byte(255))
}

func TestSetFrequencyRejectsOutOfBand(t *testing.T) {
	e, bus := newActiveEngine(t)
	for _, hz := range []int{0, 11, 1025} {
		test.That(t, errors.Is(e.SetFrequency(hz), ErrValidation), test.ShouldBeTrue)
	}
	test.That(t, bus.Log, test.ShouldBeEmpty)
	test.That(t, e.Frequency(), test.ShouldEqual, DefaultFrequency)
}

func TestInit(t *testing.T) {
	e, bus, _ := newTestEngine(t)
	test.That(t, e.Init(DefaultBoard, DefaultFrequency), test.ShouldBeNil)
	test.That(t, e.CurrentBoard(), test.ShouldEqual, 1)
	test.That(t, bus.Reg(0x40, byte(pca9685.Prescale)), test.ShouldEqual, byte(121))
}

func TestStopAll(t *testing.T) {
	for _, prev := range []int{1, 2, 5} {
		e, bus, _ := newTestEngine(t)
		for _, b := range []int{1, 2, 5} {
			test.That(t, e.ActivateBoard(b), test.ShouldBeNil)
		}
		test.That(t, e.ActivateBoard(prev), test.ShouldBeNil)
		for _, addr := range []uint16{0x40, 0x41, 0x44} {
			bus.Regs[addr][byte(pca9685.AllLEDOffL)] = 0x55
		}
		bus.Reset()

		test.That(t, e.StopAll(), test.ShouldBeNil)
		test.That(t, e.CurrentBoard(), test.ShouldEqual, prev)
		test.That(t, bus.Selected, test.ShouldEqual, pca9685.Address(prev))
		for _, addr := range []uint16{0x40, 0x41, 0x44} {
			test.That(t, bus.Reg(addr, byte(pca9685.AllLEDOffL)), test.ShouldEqual, byte(0))
		}
	}
}

func TestStopAllRestoreFails(t *testing.T) {
	e, bus, _ := newTestEngine(t)
	test.That(t, e.ActivateBoard(2), test.ShouldBeNil)
	test.That(t, e.ActivateBoard(1), test.ShouldBeNil)
	test.That(t, e.Configure(ChannelConfig{Channel: 1, Center: 300, Range: 100, Direction: 1}), test.ShouldBeNil)
	bus.Missing[0x40] = true
	bus.Reset()

	err := e.StopAll()
	test.That(t, errors.Is(err, ErrHardwareSelect), test.ShouldBeTrue)
	test.That(t, bus.Selected, test.ShouldEqual, uint16(0x41))
	test.That(t, e.CurrentBoard(), test.ShouldEqual, 2)
	test.That(t, bus.Reg(0x41, byte(pca9685.AllLEDOffH)), test.ShouldEqual, byte(0))

	// board 1's calibration must not be applied to board 2
	bus.Reset()
	err = e.SetProportional(1, 0)
	test.That(t, errors.Is(err, ErrUnconfiguredChannel), test.ShouldBeTrue)
	test.That(t, bus.Writes(), test.ShouldBeEmpty)

	// once board 1 answers again it can be selected explicitly
	delete(bus.Missing, 0x40)
	test.That(t, e.ActivateBoard(1), test.ShouldBeNil)
	test.That(t, e.SetProportional(1, 0), test.ShouldBeNil)
	test.That(t, bus.Selected, test.ShouldEqual, uint16(0x40))
}

func TestStopAllNoBoards(t *testing.T) {
	e, bus, _ := newTestEngine(t)
	test.That(t, e.StopAll(), test.ShouldBeNil)
	test.That(t, e.CurrentBoard(), test.ShouldEqual, NoBoard)
	test.That(t, bus.Log, test.ShouldBeEmpty)
}

func TestClose(t *testing.T) {
	e, bus, _ := newTestEngine(t)
	test.That(t, e.ActivateBoard(1), test.ShouldBeNil)
	test.That(t, e.Close(), test.ShouldBeNil)
	test.That(t, bus.Closed, test.ShouldBeTrue)
}
