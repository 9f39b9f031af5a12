package monitor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/oshokin/pool-guard/internal/domain/alarm"
	"github.com/oshokin/pool-guard/internal/domain/device"
	"github.com/oshokin/pool-guard/internal/logger"
)

// DefaultCheckInterval is the watchdog period used when none is configured.
const DefaultCheckInterval = 2 * time.Second

// maxBattery bounds generated initial battery levels.
const maxBattery = 100

// Spec describes one device to create. Nil fields are randomised.
type Spec struct {
	ID       string
	Battery  *int
	Position *device.Position
}

// Options configure a Registry.
type Options struct {
	// Thresholds drive the status policy; zero value means defaults.
	Thresholds device.Thresholds
	// Bounds is the pool area used for random positions.
	Bounds device.Bounds
	// CheckInterval is the watchdog period.
	CheckInterval time.Duration
	// Publisher receives state changes and alarms; nil discards them.
	Publisher Publisher
	// Seed makes initial values and movement reproducible; zero picks a random seed.
	Seed uint64
}

// Registry maps device identifiers to devices. Its key set is fixed at
// construction; only the devices themselves change afterwards.
type Registry struct {
	// devices is the lookup table; never written after NewRegistry.
	devices map[string]*Device
	// ordered keeps the devices in slot order.
	ordered []*Device
	// watchdogs holds one watchdog per device in slot order.
	watchdogs []*Watchdog
}

// NewRegistry builds the fixed device set.
func NewRegistry(specs []Spec, opts Options) (*Registry, error) {
	if len(specs) == 0 {
		return nil, ErrNoDevices
	}

	if opts.Thresholds == (device.Thresholds{}) {
		opts.Thresholds = device.DefaultThresholds()
	}

	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}

	if opts.Bounds.Width <= 0 || opts.Bounds.Height <= 0 {
		opts.Bounds = device.Bounds{Width: 500, Height: 250}
	}

	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}

	if opts.Publisher == nil {
		opts.Publisher = noopPublisher{}
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64() //nolint:gosec // Simulation randomness, not security.
	}

	root := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // Simulation randomness.

	r := &Registry{
		devices:   make(map[string]*Device, len(specs)),
		ordered:   make([]*Device, 0, len(specs)),
		watchdogs: make([]*Watchdog, 0, len(specs)),
	}

	dopts := deviceOptions{
		thresholds: opts.Thresholds,
		bounds:     opts.Bounds,
		publisher:  opts.Publisher,
	}

	for slot, spec := range specs {
		if spec.ID == "" {
			return nil, ErrInvalidDeviceID
		}

		if _, ok := r.devices[spec.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDevice, spec.ID)
		}

		battery := root.IntN(maxBattery + 1)
		if spec.Battery != nil {
			battery = *spec.Battery
		}

		position := opts.Bounds.Random(root)
		if spec.Position != nil {
			position = *spec.Position
		}

		rng := rand.New(rand.NewPCG(root.Uint64(), root.Uint64())) //nolint:gosec // Simulation randomness.
		d := newDevice(spec.ID, slot, battery, position, rng, dopts)

		r.devices[spec.ID] = d
		r.ordered = append(r.ordered, d)
		r.watchdogs = append(r.watchdogs, NewWatchdog(d, opts.CheckInterval))
	}

	return r, nil
}

// Lookup returns the device with the given id.
func (r *Registry) Lookup(id string) (*Device, error) {
	d, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	return d, nil
}

// ApplyTelemetry records a telemetry update for id. Unknown ids return
// ErrDeviceNotFound and leave the registry untouched.
func (r *Registry) ApplyTelemetry(ctx context.Context, id string, battery, x, y int) error {
	d, err := r.Lookup(id)
	if err != nil {
		return err
	}

	snapshot := d.applyTelemetry(ctx, battery, x, y)

	logger.DebugKV(ctx, "Telemetry applied",
		"device_id", id, "battery", battery, "x", x, "y", y, "status", snapshot.Status)

	return nil
}

// ForceSignalLoss makes id look silent past the drowning timeout and runs one
// watchdog evaluation at once. actor may be nil.
func (r *Registry) ForceSignalLoss(ctx context.Context, id string, actor *alarm.Actor) (device.Snapshot, error) {
	d, err := r.Lookup(id)
	if err != nil {
		return device.Snapshot{}, err
	}

	snapshot, err := d.forceSignalLoss(ctx, actor)
	if err != nil {
		return snapshot, fmt.Errorf("evaluate %s: %w", id, err)
	}

	return snapshot, nil
}

// Snapshot returns the current state of id.
func (r *Registry) Snapshot(id string) (device.Snapshot, error) {
	d, err := r.Lookup(id)
	if err != nil {
		return device.Snapshot{}, err
	}

	return d.Snapshot(), nil
}

// Snapshots returns the state of every device in slot order.
func (r *Registry) Snapshots() []device.Snapshot {
	result := make([]device.Snapshot, 0, len(r.ordered))
	for _, d := range r.ordered {
		result = append(result, d.Snapshot())
	}

	return result
}

// Len returns the number of devices.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// Run starts every watchdog and blocks until ctx is canceled and all of
// them have returned.
func (r *Registry) Run(ctx context.Context) {
	ctx = logger.WithName(ctx, "watchdog")

	logger.InfoKV(ctx, "Starting watchdogs", "devices", len(r.watchdogs))

	var wg sync.WaitGroup

	for _, w := range r.watchdogs {
		wg.Go(func() {
			w.Run(ctx)
		})
	}

	wg.Wait()

	logger.Info(ctx, "Watchdogs stopped")
}

// Stop raises the stop flag of every watchdog; each exits on its next tick.
func (r *Registry) Stop() {
	for _, w := range r.watchdogs {
		w.Stop()
	}
}

// Stopped reports whether Stop has been called.
func (r *Registry) Stopped() bool {
	for _, w := range r.watchdogs {
		if !w.Stopped() {
			return false
		}
	}

	return true
}
