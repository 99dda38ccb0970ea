package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Seann-Moser/i2cpwm/pkg/controller"
	"github.com/Seann-Moser/i2cpwm/pkg/logging"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "i2cpwm",
	Short: "Drive servos and motors on PCA9685 boards over I2C",
	Long: `i2cpwm controls up to 62 PCA9685 16 channel PWM boards sharing one I2C bus.

Servos are commanded by raw tick, by a calibrated -1000..1000 proportion or, once a drive
topology is configured, by a linear/angular velocity that is mixed into wheel speeds.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", controller.DefaultConfigFile, "config file")
}

// setup loads the configuration and builds the logger shared by every command.
func setup() (controller.Configuration, *zap.SugaredLogger, error) {
	config, err := controller.LoadConfiguration(configPath)
	if err != nil {
		return config, nil, err
	}
	logger, err := logging.NewLogger(config.LogLevel, config.LogJSON)
	if err != nil {
		return config, nil, err
	}
	return config, logger, nil
}
