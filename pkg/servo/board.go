package servo

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/Seann-Moser/i2cpwm/pkg/pca9685"
)

// ValidBoard reports whether slot is an addressable one based board slot.
func ValidBoard(slot int) bool {
	return slot >= 1 && slot <= pca9685.MaxBoards
}

// CurrentBoard returns the active board slot, or NoBoard.
func (e *Engine) CurrentBoard() int {
	return e.active
}

// Initialized returns the slots that have completed bring-up, in ascending order.
func (e *Engine) Initialized() []int {
	var out []int
	for i, ok := range e.initialized {
		if ok {
			out = append(out, i+1)
		}
	}
	return out
}

// ActivateBoard makes slot the board addressed by every following call. The first activation of
// a slot brings the chip up and switches all its outputs off. A board that does not answer at
// its address leaves the active board unchanged. Bring-up write failures are returned but the
// slot is still marked initialized.
func (e *Engine) ActivateBoard(slot int) error {
	if !ValidBoard(slot) {
		e.logger.Errorw("invalid board number, board numbers must be between 1 and 62", "board", slot)
		return validationError("board %d", slot)
	}
	if e.active == slot {
		return nil
	}
	if err := e.selectBoard(slot); err != nil {
		return err
	}
	if e.initialized[slot-1] {
		return nil
	}
	e.initialized[slot-1] = true
	e.logger.Infow("bringing up new board", "board", slot, "address", pca9685.Address(slot))
	return e.run(pca9685.ActivationSteps())
}

func (e *Engine) selectBoard(slot int) error {
	addr := pca9685.Address(slot)
	if err := e.bus.SelectDevice(addr); err != nil {
		e.logger.Errorw("failed to acquire bus access or talk to board", "board", slot, "address", addr, "error", err)
		return errors.Wrapf(ErrHardwareSelect, "board %d at 0x%02X: %v", slot, addr, err)
	}
	e.active = slot
	return nil
}

// StopAll switches every output of every initialized board off, leaving servos unpowered
// rather than centered, then re-addresses the board that was active before. If that board no
// longer answers, the active board is left at whichever board the bus still addresses.
func (e *Engine) StopAll() error {
	prev := e.active
	var errs error
	for _, slot := range e.Initialized() {
		if err := e.selectBoard(slot); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, e.SetAllChannels(0, 0))
	}
	if prev == NoBoard {
		e.active = NoBoard
		return errs
	}
	if prev != e.active {
		if err := e.selectBoard(prev); err != nil {
			// the bus still addresses the last board stopped
			e.logger.Errorw("failed to restore active board", "board", prev, "active", e.active)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
