package server

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/logger"
)

// Options controls the pool-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the telemetry listen address.
	ListenAddress string
	// ControlAddress overrides the gRPC control API address.
	ControlAddress string
	// DashboardAddress overrides the dashboard address.
	DashboardAddress string
	// Output receives terminal alarms; defaults to os.Stdout.
	Output io.Writer
}

// Run starts the pool server and blocks until ctx is canceled.
// A missing configuration file means built-in defaults.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "pool-server")

	settings, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = applyOverrides(settings, opts); err != nil {
		return fmt.Errorf("apply overrides: %w", err)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	srv, err := New(ctx, settings, out)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

// applyOverrides replaces configured addresses with command line values
// and re-validates the result.
func applyOverrides(settings *config.Config, opts *Options) error {
	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if opts.ControlAddress != "" {
		settings.ControlAddress = opts.ControlAddress
	}

	if opts.DashboardAddress != "" {
		settings.DashboardAddress = opts.DashboardAddress
	}

	return config.Validate(settings)
}
