package monitor

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/oshokin/pool-guard/internal/domain/alarm"
	"github.com/oshokin/pool-guard/internal/domain/device"
	"github.com/oshokin/pool-guard/internal/logger"
)

// signalLossMargin is how far past the drowning timeout a forced signal loss
// back-dates the last signal.
const signalLossMargin = 5 * time.Second

// Device is the live state of one wearable.
// All fields are guarded by mu; readers use Snapshot.
type Device struct {
	// id and slot never change after construction.
	id   string
	slot int

	// mu serialises telemetry updates, watchdog ticks and snapshots.
	mu         sync.Mutex
	battery    int
	position   device.Position
	status     device.Status
	lastSignal time.Time

	thresholds device.Thresholds
	bounds     device.Bounds
	// rng drives simulated movement; guarded by mu.
	rng       *rand.Rand
	publisher Publisher
}

// deviceOptions carries construction parameters shared by all devices.
type deviceOptions struct {
	thresholds device.Thresholds
	bounds     device.Bounds
	publisher  Publisher
}

// newDevice creates a device whose last signal is now.
// The initial status is the policy result of a fresh telemetry update.
func newDevice(
	id string,
	slot int,
	battery int,
	position device.Position,
	rng *rand.Rand,
	opts deviceOptions,
) *Device {
	d := &Device{
		id:         id,
		slot:       slot,
		battery:    battery,
		position:   position,
		status:     device.StatusNormal,
		lastSignal: time.Now(),
		thresholds: opts.thresholds,
		bounds:     opts.bounds,
		rng:        rng,
		publisher:  opts.publisher,
	}

	if res, err := device.Evaluate(d.thresholds, device.Input{
		Previous: device.StatusNormal,
		Battery:  battery,
		Trigger:  device.TriggerTelemetry,
	}); err == nil {
		d.status = res.Status
	}

	return d
}

// ID returns the device identifier.
func (d *Device) ID() string {
	return d.id
}

// Slot returns the device's fixed index in configured order.
func (d *Device) Slot() int {
	return d.slot
}

// Snapshot returns a consistent copy of the device state.
func (d *Device) Snapshot() device.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.snapshotLocked()
}

// snapshotLocked copies the state; mu must be held.
func (d *Device) snapshotLocked() device.Snapshot {
	return device.Snapshot{
		ID:         d.id,
		Slot:       d.slot,
		Battery:    d.battery,
		Position:   d.position,
		Status:     d.status,
		LastSignal: d.lastSignal,
	}
}

// applyTelemetry records a genuine signal and re-evaluates with zero elapsed
// time. This is the only path out of DROWNING.
func (d *Device) applyTelemetry(ctx context.Context, battery, x, y int) device.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	before := d.snapshotLocked()

	d.battery = battery
	d.position = device.Position{X: x, Y: y}
	d.lastSignal = time.Now()

	res, err := device.Evaluate(d.thresholds, device.Input{
		Previous: d.status,
		Battery:  d.battery,
		Elapsed:  0,
		Trigger:  device.TriggerTelemetry,
	})
	if err != nil {
		logger.ErrorKV(ctx, "Status evaluation failed, keeping previous status",
			"device_id", d.id, "status", d.status, "error", err)

		res = device.Result{Status: d.status}
	}

	d.status = res.Status

	return d.publishLocked(ctx, before, res, nil)
}

// evaluate is one watchdog pass: it computes the silence since the last
// signal, simulates movement when due and publishes changes.
func (d *Device) evaluate(ctx context.Context, actor *alarm.Actor) (device.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.evaluateLocked(ctx, actor)
}

// forceSignalLoss back-dates the last signal past the drowning timeout and
// immediately runs a watchdog pass, so the alarm fires without waiting for a tick.
func (d *Device) forceSignalLoss(ctx context.Context, actor *alarm.Actor) (device.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastSignal = time.Now().Add(-(d.thresholds.Drowning + signalLossMargin))

	logger.WarnKV(ctx, "Signal loss forced", "device_id", d.id, "actor", actor.String())

	return d.evaluateLocked(ctx, actor)
}

// evaluateLocked is the watchdog variant of the policy; mu must be held.
// On error the previous status is retained.
func (d *Device) evaluateLocked(ctx context.Context, actor *alarm.Actor) (device.Snapshot, error) {
	before := d.snapshotLocked()
	elapsed := time.Since(d.lastSignal)

	res, err := device.Evaluate(d.thresholds, device.Input{
		Previous: d.status,
		Battery:  d.battery,
		Elapsed:  elapsed,
		Trigger:  device.TriggerWatchdog,
	})
	if err != nil {
		return before, err
	}

	if res.Move {
		d.position = d.bounds.Random(d.rng)
	}

	d.status = res.Status

	return d.publishLocked(ctx, before, res, actor), nil
}

// publishLocked publishes the change from before, plus an alarm when the
// result asks for one; mu must be held.
func (d *Device) publishLocked(
	ctx context.Context,
	before device.Snapshot,
	res device.Result,
	actor *alarm.Actor,
) device.Snapshot {
	after := d.snapshotLocked()

	if before.Status != after.Status {
		logger.InfoKV(ctx, "Device status changed",
			"device_id", d.id, "from", before.Status, "to", after.Status, "battery", after.Battery)
	}

	if !after.SameTelemetry(before) {
		d.publisher.PublishChange(after)
	}

	if res.Alarm {
		logger.WarnKV(ctx, "Device is drowning", "device_id", d.id,
			"silence", time.Since(after.LastSignal).Round(time.Second).String())

		d.publisher.PublishAlarm(&alarm.Event{
			Device:    after,
			Actor:     actor.Clone(),
			Timestamp: time.Now(),
		})
	}

	return after
}
