package controller

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/Seann-Moser/i2cpwm/pkg/servo"
)

// Command names accepted by Do.
const (
	SetActiveBoard       = "setActiveBoard"
	SetFrequency         = "setFrequency"
	SetAbsolute          = "setAbsolute"
	SetProportional      = "setProportional"
	SetDriveVelocity     = "setDriveVelocity"
	ConfigureCalibration = "configureCalibration"
	ConfigureDriveMode   = "configureDriveMode"
	StopAll              = "stopAll"
	Status               = "status"
)

var (
	// ErrUnknownCommand is returned by Do for a command name it does not know.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrBadPayload is returned by Do when the payload does not decode into the command's type.
	ErrBadPayload = errors.New("bad payload")
)

// IntValue is the payload of setActiveBoard and setFrequency.
type IntValue struct {
	Value int `json:"value"`
}

// ServoArray is the payload of setAbsolute and setProportional.
type ServoArray struct {
	Servos []servo.ChannelValue `json:"servos"`
}

// ServosConfig is the payload of configureCalibration.
type ServosConfig struct {
	Servos []servo.ChannelConfig `json:"servos"`
}

// RoleAssignment puts a channel at a drive position, 0 = none, 1 = left front, 2 = right front,
// 3 = left rear, 4 = right rear.
type RoleAssignment struct {
	Channel int `json:"channel"`
	Role    int `json:"role"`
}

// DriveMode is the payload of configureDriveMode.
type DriveMode struct {
	Topology string           `json:"topology"`
	Scale    float64          `json:"scale"`
	Roles    []RoleAssignment `json:"roles"`
}

// ItemError reports one failed entry of a batch command.
type ItemError struct {
	Channel int    `json:"channel"`
	Error   string `json:"error"`
}

// Response is returned for every command. Error carries the applied value for setActiveBoard
// and setFrequency and a non-zero code on failure for the configure commands.
type Response struct {
	Error  int           `json:"error"`
	Failed []ItemError   `json:"failed,omitempty"`
	Status *servo.Status `json:"status,omitempty"`
}

func failed(results []servo.Result) []ItemError {
	var out []ItemError
	for _, r := range servo.Failed(results) {
		out = append(out, ItemError{Channel: r.Channel, Error: r.Err.Error()})
	}
	return out
}

// decode converts a payload into T. Payloads coming off the wire are generic JSON maps and are
// decoded by their json tags; a T is used as is.
func decode[T any](payload any) (T, error) {
	var out T
	if v, ok := payload.(T); ok {
		return v, nil
	}
	if payload == nil {
		return out, errors.Wrap(ErrBadPayload, "missing payload")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(payload); err != nil {
		return out, errors.Wrap(ErrBadPayload, err.Error())
	}
	return out, nil
}
