package servo

import (
	"go.uber.org/multierr"

	"github.com/Seann-Moser/i2cpwm/pkg/pca9685"
)

// Frequency limits in Hz. Analog RC servos expect 20ms pulses, i.e. 50Hz.
const (
	MinFrequency     = 12
	MaxFrequency     = 1024
	DefaultFrequency = 50
)

// ValidFrequency reports whether hz is inside the supported operating band.
func ValidFrequency(hz int) bool {
	return hz >= MinFrequency && hz <= MaxFrequency
}

// Frequency returns the PWM frequency last applied.
func (e *Engine) Frequency() int {
	return e.frequency
}

// SetFrequency programs the prescaler of the active board for hz. The chip only accepts a new
// prescale while asleep, so MODE1 is read, the chip is put to sleep, the prescale written, the
// old mode restored and, once the oscillator has settled, the outputs restarted. A failed step
// is logged and the rest of the sequence still runs.
func (e *Engine) SetFrequency(hz int) error {
	if !ValidFrequency(hz) {
		e.logger.Errorw("invalid PWM frequency, frequencies must be between 12 and 1024", "frequency", hz)
		return validationError("frequency %d", hz)
	}
	e.frequency = hz
	if !ValidBoard(e.active) {
		e.logger.Errorw("no active board", "board", e.active)
		return validationError("no active board")
	}

	prescale := pca9685.PrescaleFor(hz)
	e.logger.Infow("setting PWM frequency", "board", e.active, "frequency", hz, "prescale", prescale)
	if int(prescale) != pca9685.PrescaleValue(hz) {
		e.logger.Warnw("frequency outside the prescaler range, the chip runs at the nearest it can",
			"frequency", hz, "actual", pca9685.OutputFrequency(prescale))
	}

	oldMode, err := e.read(pca9685.Mode1)
	if err != nil {
		e.logger.Errorw("unable to read PWM controller mode, assuming all call mode", "board", e.active, "error", err)
		oldMode = pca9685.AllCall
	}
	return multierr.Combine(err, e.run(pca9685.FrequencySteps(oldMode, prescale)))
}
