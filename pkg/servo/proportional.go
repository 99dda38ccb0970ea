package servo

import (
	"github.com/pkg/errors"
)

// Proportional value limits.
const (
	MinProportional = -1000
	MaxProportional = 1000
)

// ChannelValue is one entry of an absolute or proportional request.
type ChannelValue struct {
	Channel int `json:"channel"`
	Value   int `json:"value"`
}

// SetAbsolute sets the pulse of a channel to value ticks, starting at tick 0.
func (e *Engine) SetAbsolute(channel, value int) error {
	if !ValidChannel(channel) {
		e.logger.Errorw("invalid servo number, servo numbers must be between 1 and 16", "channel", channel)
		return validationError("channel %d", channel)
	}
	if !validTick(value) {
		e.logger.Errorw("invalid PWM value, PWM values must be between 0 and 4096", "channel", channel, "value", value)
		return validationError("value %d", value)
	}
	if err := e.SetChannel(channel, 0, value); err != nil {
		return err
	}
	e.logger.Infow("servo set", "board", e.active, "channel", channel, "value", value)
	return nil
}

// SetAbsoluteAll applies every entry independently.
func (e *Engine) SetAbsoluteAll(values []ChannelValue) []Result {
	results := make([]Result, 0, len(values))
	for _, v := range values {
		results = append(results, Result{Channel: v.Channel, Err: e.SetAbsolute(v.Channel, v.Value)})
	}
	return results
}

// SetProportional sets a channel from a value in ±1000 using its calibration.
func (e *Engine) SetProportional(channel, value int) error {
	if !ValidChannel(channel) {
		e.logger.Errorw("invalid servo number, servo numbers must be between 1 and 16", "channel", channel)
		return validationError("channel %d", channel)
	}
	if value < MinProportional || value > MaxProportional {
		e.logger.Errorw("invalid proportion value, proportion values must be between -1000 and 1000", "channel", channel, "value", value)
		return validationError("proportion %d", value)
	}
	if err := e.requireBoard(); err != nil {
		return err
	}
	cal := e.channels[e.active-1][channel-1]
	if !cal.Configured() {
		e.logger.Errorw("missing servo configuration", "board", e.active, "channel", channel)
		return errors.Wrapf(ErrUnconfiguredChannel, "board %d channel %d", e.active, channel)
	}
	pos := cal.Map(value)
	if !validTick(pos) {
		e.logger.Errorw("invalid computed position", "channel", channel, "direction", cal.Direction,
			"range", cal.Range, "value", value, "center", cal.Center, "position", pos)
		return validationError("computed position %d", pos)
	}
	if err := e.SetChannel(channel, 0, pos); err != nil {
		return err
	}
	e.logger.Infow("servo set", "board", e.active, "channel", channel, "value", value, "position", pos)
	return nil
}

// SetProportionalAll applies every entry independently.
func (e *Engine) SetProportionalAll(values []ChannelValue) []Result {
	results := make([]Result, 0, len(values))
	for _, v := range values {
		results = append(results, Result{Channel: v.Channel, Err: e.SetProportional(v.Channel, v.Value)})
	}
	return results
}
