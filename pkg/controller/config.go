package controller

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Seann-Moser/i2cpwm/pkg/i2cbus"
	"github.com/Seann-Moser/i2cpwm/pkg/io"
	"github.com/Seann-Moser/i2cpwm/pkg/servo"
)

// DefaultConfigFile is read when no --config is given.
const DefaultConfigFile = ".i2cpwm.config.json"

// Configuration is loaded from a JSON file at startup.
type Configuration struct {
	Backend         string  `json:"backend"`
	Bus             string  `json:"bus"`
	GobotBus        int     `json:"gobot_bus"`
	Frequency       int     `json:"frequency"`
	Board           int     `json:"board"`
	Listen          string  `json:"listen"`
	GPIOChip        string  `json:"gpio_chip"`
	OutputEnablePin PinName `json:"output_enable_pin"`
	EStopPin        PinName `json:"estop_pin"`
	LogLevel        string  `json:"log_level"`
	LogJSON         bool    `json:"log_json"`
}

// DefaultConfiguration is used for anything the file leaves out.
func DefaultConfiguration() Configuration {
	return Configuration{
		Backend:   i2cbus.BackendPeriph,
		Bus:       "",
		GobotBus:  1,
		Frequency: servo.DefaultFrequency,
		Board:     servo.DefaultBoard,
		Listen:    "0.0.0.0:8080",
		GPIOChip:  "gpiochip0",
		LogLevel:  "info",
	}
}

// LoadConfiguration reads path over the defaults. A missing file is not an error.
func LoadConfiguration(path string) (Configuration, error) {
	config := DefaultConfiguration()
	if path == "" {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, errors.Wrapf(err, "reading %s", path)
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(err, "parsing %s", path)
	}
	return config, nil
}

// PinName is a GPIO pin given by name ("GPIO17", "J8p11") or line number. Empty or negative
// leaves the pin unused.
type PinName string

func (p *PinName) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*p = ""
		if n >= 0 {
			*p = PinName(strconv.Itoa(n))
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrapf(err, "pin %s", b)
	}
	*p = PinName(s)
	return nil
}

// Pins resolves the output enable and e-stop pins to line offsets, -1 for unused.
func (c Configuration) Pins() (outputEnable, estop int, err error) {
	if outputEnable, err = io.PinOffset(string(c.OutputEnablePin)); err != nil {
		return -1, -1, errors.Wrapf(err, "output_enable_pin %q", c.OutputEnablePin)
	}
	if estop, err = io.PinOffset(string(c.EStopPin)); err != nil {
		return -1, -1, errors.Wrapf(err, "estop_pin %q", c.EStopPin)
	}
	return outputEnable, estop, nil
}
