package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/protobuf/encoding/protojson"

	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/logger"
	"github.com/oshokin/pool-guard/internal/service/common"
)

// DefaultPollInterval is the refresh period of the device table.
const DefaultPollInterval = 2 * time.Second

// Options controls the console polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ControlAddress provides an optional control API address override.
	ControlAddress string
	// PollInterval defines the interval between refreshes.
	PollInterval time.Duration
	// Once prints the device list as JSON and exits.
	Once bool
	// Output receives the table; defaults to os.Stdout.
	Output io.Writer
}

// SignalLossOptions controls the signal-loss subcommand.
type SignalLossOptions struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ControlAddress provides an optional control API address override.
	ControlAddress string
	// DeviceID is the device to silence.
	DeviceID string
	// Output receives the result; defaults to os.Stdout.
	Output io.Writer
}

// Run polls the device list until ctx is canceled, or prints it once.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "pool-console")

	cfg, address, err := resolve(opts.ConfigPath, opts.ControlAddress)
	if err != nil {
		return err
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	out := output(opts.Output)

	client, err := common.Dial(ctx, address, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	if opts.Once {
		return printOnce(ctx, client, out)
	}

	logger.InfoKV(ctx, "Watching pool", "control_address", address, "interval", opts.PollInterval.String())

	seen := newTracker()

	// Show the table immediately rather than after the first tick.
	if err = refresh(ctx, client, seen, out); err != nil {
		logger.ErrorKV(ctx, "Refresh failed", "error", err)
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
			if err = refresh(ctx, client, seen, out); err != nil {
				logger.ErrorKV(ctx, "Refresh failed", "error", err)
			}
		}
	}
}

// RunSignalLoss forces a signal loss on one device and prints its new state.
func RunSignalLoss(ctx context.Context, opts *SignalLossOptions) error {
	ctx = logger.WithName(ctx, "pool-console")

	cfg, address, err := resolve(opts.ConfigPath, opts.ControlAddress)
	if err != nil {
		return err
	}

	// Detect current system actor for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	client, err := common.Dial(ctx, address, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	snapshot, err := client.ForceSignalLoss(ctx, opts.DeviceID, actor)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Signal loss forced", "device_id", snapshot.ID, "status", snapshot.Status, "actor", actor.String())

	_, err = fmt.Fprintf(output(opts.Output), "%s is now %s\n", snapshot.ID, snapshot.Status)

	return err
}

// resolve loads settings and picks the control address: argument over config.
func resolve(configPath, override string) (*config.Config, string, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("load configuration: %w", err)
	}

	address := cfg.ControlAddress
	if override != "" {
		address = override
	}

	return cfg, address, nil
}

func output(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}

	return w
}

// printOnce writes the raw ListDevices response as indented JSON.
func printOnce(ctx context.Context, client *common.Client, out io.Writer) error {
	raw, _, err := client.ListDevices(ctx)
	if err != nil {
		return err
	}

	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal devices: %w", err)
	}

	_, err = fmt.Fprintln(out, string(data))

	return err
}

// refresh fetches the devices, prints the table and alerts on new drownings.
func refresh(ctx context.Context, client *common.Client, seen *tracker, out io.Writer) error {
	_, devices, err := client.ListDevices(ctx)
	if err != nil {
		return err
	}

	if err = renderTable(out, devices, time.Now()); err != nil {
		return err
	}

	for _, d := range seen.newlyDrowning(devices) {
		logger.WarnKV(ctx, "Device is drowning", "device_id", d.ID, "x", d.Position.X, "y", d.Position.Y)

		if _, err = fmt.Fprintf(out, "\aALARM: %s is drowning at (%d, %d)\n", d.ID, d.Position.X, d.Position.Y); err != nil {
			return fmt.Errorf("write alarm: %w", err)
		}
	}

	return nil
}
