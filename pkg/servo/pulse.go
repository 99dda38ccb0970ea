package servo

import (
	"go.uber.org/multierr"

	"github.com/Seann-Moser/i2cpwm/pkg/pca9685"
)

// ValidChannel reports whether channel is a one based channel number.
func ValidChannel(channel int) bool {
	return channel >= 1 && channel <= pca9685.Channels
}

func validTick(v int) bool {
	return v >= 0 && v <= pca9685.MaxTick
}

// SetChannel sets the on and off tick of one channel on the active board. The four register
// writes are independent; a rejected write does not stop the others, so a failed call may leave
// the channel partly updated.
func (e *Engine) SetChannel(channel, on, off int) error {
	if !ValidBoard(e.active) {
		e.logger.Errorw("no active board", "board", e.active)
		return validationError("no active board")
	}
	if !ValidChannel(channel) {
		e.logger.Errorw("invalid servo number, servo numbers must be between 1 and 16", "channel", channel)
		return validationError("channel %d", channel)
	}
	if !validTick(on) || !validTick(off) {
		e.logger.Errorw("invalid pulse interval, ticks must be between 0 and 4096", "channel", channel, "on", on, "off", off)
		return validationError("interval %d..%d", on, off)
	}
	return e.writeInterval(pca9685.ChannelWrites(channel, on, off), "set channel interval")
}

// SetAllChannels sets the same interval on every channel of the active board.
func (e *Engine) SetAllChannels(on, off int) error {
	if !ValidBoard(e.active) {
		e.logger.Errorw("no active board", "board", e.active)
		return validationError("no active board")
	}
	if !validTick(on) || !validTick(off) {
		e.logger.Errorw("invalid pulse interval, ticks must be between 0 and 4096", "on", on, "off", off)
		return validationError("interval %d..%d", on, off)
	}
	return e.writeInterval(pca9685.AllChannelWrites(on, off), "set all channels interval")
}

func (e *Engine) writeInterval(writes [4]pca9685.Write, desc string) error {
	var errs error
	for _, w := range writes {
		errs = multierr.Append(errs, e.write(w.Reg, w.Value, desc))
	}
	return errs
}
