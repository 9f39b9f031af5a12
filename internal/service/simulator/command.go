package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/domain/device"
	"github.com/oshokin/pool-guard/internal/logger"
)

const (
	// DefaultInterval is the delay between two rounds of updates.
	DefaultInterval = time.Second
	// dialRetryInterval is the delay between connection attempts.
	dialRetryInterval = time.Second
	// batteryDrainPerUpdate is how much a simulated battery drops per update.
	batteryDrainPerUpdate = 2
	// fullBattery is the starting battery level.
	fullBattery = 100
)

// Options configures the simulator.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// IngestAddress overrides the server telemetry address from config.
	IngestAddress string
	// DeviceIDs are the simulated devices; empty means every configured device.
	DeviceIDs []string
	// Count is the number of rounds to send; zero sends forever.
	Count int
	// Interval is the delay between rounds.
	Interval time.Duration
	// Line, when set, is sent verbatim once instead of generated telemetry.
	Line string
}

// errNoDevices is returned when there is nothing to simulate.
var errNoDevices = errors.New("no devices to simulate")

// Run connects to the ingestion server, retrying until it is reachable, and
// sends telemetry until Count rounds are done or ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "pool-simulator")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	address := cfg.ListenAddress
	if opts.IngestAddress != "" {
		address = opts.IngestAddress
	}

	conn, err := dialWithRetry(ctx, address, cfg.Timeout)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = conn.Close()
	}()

	if opts.Line != "" {
		if _, err = fmt.Fprintln(conn, strings.TrimRight(opts.Line, "\r\n")); err != nil {
			return fmt.Errorf("send line: %w", err)
		}

		logger.InfoKV(ctx, "Line sent", "line", opts.Line)

		return nil
	}

	ids := opts.DeviceIDs
	if len(ids) == 0 {
		ids = cfg.DeviceIDs()
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	gen := &generator{
		ids:    ids,
		bounds: device.Bounds{Width: cfg.Pool.Width, Height: cfg.Pool.Height},
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // Simulation randomness.
	}

	logger.InfoKV(ctx, "Sending telemetry",
		"address", address, "devices", ids, "count", opts.Count, "interval", interval.String())

	sent, err := gen.run(ctx, conn, opts.Count, interval)

	logger.InfoKV(ctx, "Telemetry finished", "rounds", sent)

	return err
}

// dialWithRetry connects to address, retrying every second until ctx ends.
func dialWithRetry(ctx context.Context, address string, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{Timeout: timeout}

	// attempt tries once to connect.
	attempt := func() (net.Conn, bool) {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			logger.WarnKV(ctx, "Server not reachable, retrying", "address", address, "error", err)

			return nil, false
		}

		return conn, true
	}

	if conn, ok := attempt(); ok {
		return conn, nil
	}

	ticker := time.NewTicker(dialRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if conn, ok := attempt(); ok {
				return conn, nil
			}
		}
	}
}

// generator produces wire lines for a set of devices.
type generator struct {
	ids    []string
	bounds device.Bounds
	rng    *rand.Rand
}

// line returns the update of id for round n: the battery drains linearly and
// the position is random inside the pool.
func (g *generator) line(id string, n int) string {
	battery := max(0, fullBattery-n*batteryDrainPerUpdate)
	p := g.bounds.Random(g.rng)

	return fmt.Sprintf("%s %d %d %d", id, battery, p.X, p.Y)
}

// run writes count rounds (forever when zero) and returns the rounds sent.
func (g *generator) run(ctx context.Context, w io.Writer, count int, interval time.Duration) (int, error) {
	if len(g.ids) == 0 {
		return 0, errNoDevices
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sent := 0

	for count == 0 || sent < count {
		for _, id := range g.ids {
			line := g.line(id, sent)

			if _, err := fmt.Fprintln(w, line); err != nil {
				return sent, fmt.Errorf("send telemetry: %w", err)
			}

			logger.DebugKV(ctx, "Telemetry sent", "line", line)
		}

		sent++

		if count != 0 && sent >= count {
			break
		}

		select {
		case <-ctx.Done():
			return sent, nil
		case <-ticker.C:
		}
	}

	return sent, nil
}
