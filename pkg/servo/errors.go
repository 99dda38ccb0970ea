package servo

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/Seann-Moser/i2cpwm/pkg/pca9685"
)

var (
	// ErrValidation is returned for out of range input. Nothing is written to the bus.
	ErrValidation = errors.New("invalid request")
	// ErrUnconfiguredChannel is returned for proportional or drive requests on a channel
	// without calibration.
	ErrUnconfiguredChannel = errors.New("missing servo configuration")
	// ErrHardwareWrite is returned when the bus rejects a register access. Sibling writes of
	// the same update are still attempted.
	ErrHardwareWrite = errors.New("register write failed")
	// ErrHardwareSelect is returned when a board does not answer at its address.
	ErrHardwareSelect = errors.New("failed to talk to board")
)

func validationError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

func hardwareWriteError(board int, reg pca9685.Register, err error) error {
	return errors.Wrapf(ErrHardwareWrite, "board %d register %s: %v", board, reg, err)
}

func hardwareReadError(board int, reg pca9685.Register, err error) error {
	return errors.Wrapf(ErrHardwareWrite, "board %d register %s read: %v", board, reg, err)
}

// Result is the outcome of one item of a batch request.
type Result struct {
	Channel int
	Err     error
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	return lo.Filter(results, func(r Result, _ int) bool {
		return r.Err != nil
	})
}
