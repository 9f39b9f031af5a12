package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/service/server"
	"github.com/oshokin/pool-guard/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// controlAddress overrides the gRPC control API address.
	controlAddress string
	// dashboardAddress overrides the dashboard address.
	dashboardAddress string

	// rootCmd represents the base command for running the pool server.
	rootCmd = &cobra.Command{
		Use:   "pool-server [listen-address]",
		Short: "Monitor swimmer wearables and raise drowning alarms.",
		Long: `Starts the pool monitoring server.

Wearables report "<deviceId> <battery> <x> <y>" lines over TCP (default :8888).
Every device has a watchdog that marks it WARNING after 10 seconds of silence
and DROWNING after 30 seconds, raising exactly one alarm per drowning episode.
Only a new telemetry line brings a drowning device back.

The control API (gRPC, default 127.0.0.1:8889) lists devices and can force a
signal loss for drills. An optional dashboard serves a live pool map.
Settings are read from the configuration file when it exists.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:       configPath,
				ListenAddress:    listenAddress,
				ControlAddress:   controlAddress,
				DashboardAddress: dashboardAddress,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the pool-server CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVar(&controlAddress, "control", "", "control API listen address (overrides config)")
	rootCmd.Flags().StringVar(&dashboardAddress, "dashboard", "", "dashboard listen address (overrides config)")
}
