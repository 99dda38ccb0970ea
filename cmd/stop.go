package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/Seann-Moser/i2cpwm/pkg/i2cbus"
	"github.com/Seann-Moser/i2cpwm/pkg/servo"
)

var stopBoards []int

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Switch every output of the given boards off",
	Long: `stop addresses each board given by --boards and drives all of its outputs to zero, leaving
servos unpowered. It does not need a running server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		bus, err := i2cbus.Open(config.Backend, config.Bus, config.GobotBus)
		if err != nil {
			return err
		}
		engine := servo.New(bus, logger.Named("servo"))
		var errs error
		for _, board := range stopBoards {
			errs = multierr.Append(errs, engine.ActivateBoard(board))
		}
		// Close stops every board brought up above
		errs = multierr.Append(errs, engine.Close())
		if errs != nil {
			logger.Errorw("stop incomplete", "boards", stopBoards, "error", errs)
			return errs
		}
		logger.Infow("boards stopped", "boards", engine.Initialized())
		return nil
	},
}

func init() {
	stopCmd.Flags().IntSliceVar(&stopBoards, "boards", []int{servo.DefaultBoard}, "board slots to stop, 1-62")
	rootCmd.AddCommand(stopCmd)
}
