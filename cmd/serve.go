package cmd

import (
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Seann-Moser/i2cpwm/pkg/controller"
	"github.com/Seann-Moser/i2cpwm/pkg/i2cbus"
	"github.com/Seann-Moser/i2cpwm/pkg/io"
	"github.com/Seann-Moser/i2cpwm/pkg/servo"
)

var serveFlags struct {
	listen  string
	backend string
	bus     string
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the servo controller and its HTTP/WebSocket command server",
	Long: `serve opens the I2C bus, brings up the configured board at the configured PWM frequency
and accepts commands on POST /api/<command>, GET /api/status and the /ws WebSocket.

On SIGINT or SIGTERM every board is stopped before exiting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		if cmd.Flags().Changed("listen") {
			config.Listen = serveFlags.listen
		}
		if cmd.Flags().Changed("backend") {
			config.Backend = serveFlags.backend
		}
		if cmd.Flags().Changed("bus") {
			config.Bus = serveFlags.bus
		}

		bus, err := i2cbus.Open(config.Backend, config.Bus, config.GobotBus)
		if err != nil {
			logger.Errorw("failed to open i2c bus", "backend", config.Backend, "bus", config.Bus, "error", err)
			return err
		}
		engine := servo.New(bus, logger.Named("servo"))
		if err := engine.Init(config.Board, config.Frequency); err != nil {
			logger.Errorw("board bring-up incomplete", "board", config.Board, "error", err)
		}

		opts, closeGPIO, err := gpioOptions(config, logger)
		if err != nil {
			_ = engine.Close()
			return err
		}
		defer closeGPIO()

		c := controller.New(engine, logger.Named("controller"), opts...)
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		wg := sync.WaitGroup{}
		wg.Go(func() {
			c.Run(ctx)
		})
		wg.Go(func() {
			if err := c.StartServer(ctx, config.Listen); err != nil {
				logger.Errorw("server stopped", "error", err)
				stop()
			}
		})
		wg.Wait()

		if err := c.Close(); err != nil {
			logger.Errorw("failed to stop boards", "error", err)
		}
		logger.Info("i2cpwm finished")
		return nil
	},
}

// gpioOptions opens the GPIO chip when an output enable or e-stop pin is configured.
func gpioOptions(config controller.Configuration, logger *zap.SugaredLogger) ([]controller.Option, func(), error) {
	outputEnable, estop, err := config.Pins()
	if err != nil {
		return nil, nil, err
	}
	if outputEnable < 0 && estop < 0 {
		return nil, func() {}, nil
	}
	gpio, err := io.New(config.GPIOChip, logger.Named("gpio"))
	if err != nil {
		return nil, nil, err
	}
	closeGPIO := func() {
		if err := gpio.Close(); err != nil {
			logger.Errorw("failed to release gpio lines", "error", err)
		}
	}
	var opts []controller.Option
	if outputEnable >= 0 {
		opts = append(opts, controller.WithOutputEnable(gpio.OutputEnable(outputEnable)))
	}
	if estop >= 0 {
		button, err := gpio.WatchButton(estop)
		if err != nil {
			closeGPIO()
			return nil, nil, err
		}
		opts = append(opts, controller.WithEStop(button.Event))
	}
	return opts, closeGPIO, nil
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.listen, "listen", "", "address to serve on, overrides the config file")
	serveCmd.Flags().StringVar(&serveFlags.backend, "backend", "", "i2c backend, periph or gobot")
	serveCmd.Flags().StringVar(&serveFlags.bus, "bus", "", "periph i2c bus name, e.g. I2C1 or /dev/i2c-1")
	rootCmd.AddCommand(serveCmd)
}
