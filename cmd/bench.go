package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"

	"github.com/Seann-Moser/i2cpwm/pkg/io"
	"github.com/Seann-Moser/i2cpwm/pkg/pca9685"
	"github.com/Seann-Moser/i2cpwm/pkg/servo"
)

var benchFlags struct {
	board, channel int
	from, to, step int
	frequency      int
	delay          time.Duration
}

// benchCmd represents the bench command
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Sweep one channel between two ticks to check wiring",
	Long: `bench talks to a single PCA9685 through the periph driver, without the servo engine, and
sweeps one channel from --from to --to and back. Use it to find center and range values
before calibrating. Do not run it while serve is using the bus.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		if !servo.ValidBoard(benchFlags.board) || !servo.ValidChannel(benchFlags.channel) {
			return errors.Errorf("board %d channel %d: boards are 1-62, channels 1-16", benchFlags.board, benchFlags.channel)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg := io.SweepConfig{
			Bus:       config.Bus,
			Address:   pca9685.Address(benchFlags.board),
			Channel:   benchFlags.channel - 1,
			From:      benchFlags.from,
			To:        benchFlags.to,
			Step:      benchFlags.step,
			Frequency: physic.Frequency(benchFlags.frequency) * physic.Hertz,
			Delay:     benchFlags.delay,
		}
		logger.Infow("sweeping", "board", benchFlags.board, "channel", benchFlags.channel,
			"from", cfg.From, "to", cfg.To, "step", cfg.Step)
		return io.Sweep(ctx, cfg)
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchFlags.board, "board", servo.DefaultBoard, "board slot, 1-62")
	benchCmd.Flags().IntVar(&benchFlags.channel, "channel", 1, "channel, 1-16")
	benchCmd.Flags().IntVar(&benchFlags.from, "from", 205, "first tick")
	benchCmd.Flags().IntVar(&benchFlags.to, "to", 410, "last tick")
	benchCmd.Flags().IntVar(&benchFlags.step, "step", 5, "ticks per step")
	benchCmd.Flags().IntVar(&benchFlags.frequency, "frequency", servo.DefaultFrequency, "PWM frequency in Hz")
	benchCmd.Flags().DurationVar(&benchFlags.delay, "delay", 20*time.Millisecond, "wait between steps")
	rootCmd.AddCommand(benchCmd)
}
