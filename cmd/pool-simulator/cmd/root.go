package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/service/simulator"
	"github.com/oshokin/pool-guard/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// devices to simulate.
	devices []string
	// count of rounds, zero for endless.
	count int
	// interval between rounds.
	interval time.Duration
	// line to send verbatim.
	line string

	// rootCmd represents the base command for generating telemetry.
	rootCmd = &cobra.Command{
		Use:   "pool-simulator [ingest-address]",
		Short: "Send simulated wearable telemetry to the pool server.",
		Long: `Connects to the pool server's telemetry port and plays the part of the wearables.

Each round sends one line per device with a battery that drains by 2% per round
and a random position inside the pool. Stop sending to watch a device go from
WARNING to DROWNING. Use --line to send a single hand-written line instead.
The connection is retried until the server is reachable.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var ingestAddress string
			if len(args) > 0 {
				ingestAddress = args[0]
			}

			return simulator.Run(ctx, &simulator.Options{
				ConfigPath:    configPath,
				IngestAddress: ingestAddress,
				DeviceIDs:     devices,
				Count:         count,
				Interval:      interval,
				Line:          line,
			})
		},
	}
)

// Execute runs the pool-simulator CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringSliceVarP(&devices, "device", "d", nil, "device id to simulate (repeatable, default: all configured)")
	rootCmd.Flags().IntVarP(&count, "count", "n", 0, "number of rounds, 0 for endless")
	rootCmd.Flags().DurationVarP(&interval, "interval", "i", simulator.DefaultInterval, "delay between rounds")
	rootCmd.Flags().StringVarP(&line, "line", "l", "", "send this line once and exit")
}
