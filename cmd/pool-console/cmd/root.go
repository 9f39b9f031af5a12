package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/service/console"
	"github.com/oshokin/pool-guard/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// once prints the device list once as JSON.
	once bool
	// interval between refreshes.
	interval time.Duration

	// rootCmd represents the base command for watching the pool.
	rootCmd = &cobra.Command{
		Use:   "pool-console [control-address]",
		Short: "Watch the pool from a terminal.",
		Long: `Polls the pool server's control API and prints every device with its status,
battery, position and how long it has been silent.

When a device starts drowning the terminal bell rings and an alarm line is printed.
Use --once to print the current device list as JSON and exit.
Control address can be provided as argument or loaded from configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var controlAddress string
			if len(args) > 0 {
				controlAddress = args[0]
			}

			return console.Run(ctx, &console.Options{
				ConfigPath:     configPath,
				ControlAddress: controlAddress,
				PollInterval:   interval,
				Once:           once,
			})
		},
	}

	// signalLossCmd forces a signal loss on one device.
	signalLossCmd = &cobra.Command{
		Use:   "signal-loss <device-id> [control-address]",
		Short: "Force a device into signal loss for a drill.",
		Long: `Makes the server treat the device as silent for longer than the drowning
timeout and evaluates it immediately, so the alarm fires without waiting.
The request is recorded with the current user and host.
Only a new telemetry line from the device clears the alarm.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var controlAddress string
			if len(args) > 1 {
				controlAddress = args[1]
			}

			return console.RunSignalLoss(ctx, &console.SignalLossOptions{
				ConfigPath:     configPath,
				ControlAddress: controlAddress,
				DeviceID:       args[0],
			})
		},
	}
)

// Execute runs the pool-console CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(signalLossCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVar(&once, "once", false, "print the device list as JSON and exit")
	rootCmd.Flags().
		DurationVarP(&interval, "interval", "i", console.DefaultPollInterval, "refresh interval")
}
