package device

import (
	"errors"
	"fmt"
	"time"
)

// Trigger identifies what caused an evaluation.
type Trigger int

const (
	// TriggerTelemetry is a fresh telemetry update; it may clear DROWNING.
	TriggerTelemetry Trigger = iota
	// TriggerWatchdog is an elapsed-time evaluation; it never clears DROWNING.
	TriggerWatchdog
)

// String returns a short name used in logs.
func (t Trigger) String() string {
	if t == TriggerWatchdog {
		return "watchdog"
	}

	return "telemetry"
}

// Thresholds configure the status policy.
type Thresholds struct {
	// LowBattery is the percentage below which a device is LOW_BATTERY.
	LowBattery int
	// Warning is the silence after which a device is WARNING.
	Warning time.Duration
	// Drowning is the silence after which a device is DROWNING.
	Drowning time.Duration
	// MovementAfter is the silence after which the watchdog moves the device.
	MovementAfter time.Duration
}

// Default policy thresholds.
const (
	DefaultLowBattery    = 10
	DefaultWarning       = 10 * time.Second
	DefaultDrowning      = 30 * time.Second
	DefaultMovementAfter = 5 * time.Second
)

// ErrInvalidThresholds is returned when thresholds cannot order the statuses.
var ErrInvalidThresholds = errors.New("invalid policy thresholds")

// DefaultThresholds returns the thresholds the monitor ships with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowBattery:    DefaultLowBattery,
		Warning:       DefaultWarning,
		Drowning:      DefaultDrowning,
		MovementAfter: DefaultMovementAfter,
	}
}

// Validate checks that the thresholds describe a usable policy.
func (t Thresholds) Validate() error {
	switch {
	case t.Drowning <= 0:
		return fmt.Errorf("%w: drowning timeout must be positive", ErrInvalidThresholds)
	case t.Warning <= 0 || t.Warning >= t.Drowning:
		return fmt.Errorf("%w: warning timeout must be within (0, %s)", ErrInvalidThresholds, t.Drowning)
	case t.MovementAfter < 0:
		return fmt.Errorf("%w: movement delay must not be negative", ErrInvalidThresholds)
	default:
		return nil
	}
}

// Input is everything a single evaluation depends on.
type Input struct {
	// Previous is the status before this evaluation.
	Previous Status
	// Battery is the current battery percentage.
	Battery int
	// Elapsed is the silence since the last accepted telemetry.
	Elapsed time.Duration
	// Trigger is what caused the evaluation.
	Trigger Trigger
}

// Result is the outcome of one evaluation.
type Result struct {
	// Status is the new status.
	Status Status
	// Alarm is set on a new entry into DROWNING.
	Alarm bool
	// Move asks the caller to simulate movement inside the pool.
	Move bool
}

// Evaluate applies the status rules in priority order; the first match wins:
//
//  1. elapsed >= drowning: DROWNING, alarming only when newly entered;
//  2. watchdog trigger with previous DROWNING: stays DROWNING;
//  3. elapsed >= warning with battery at or above the threshold: WARNING;
//  4. battery below the threshold: LOW_BATTERY;
//  5. otherwise NORMAL.
//
// Evaluate is a pure function of its arguments.
func Evaluate(t Thresholds, in Input) (Result, error) {
	if !in.Previous.Valid() {
		return Result{Status: in.Previous}, fmt.Errorf("evaluate: %w: %d", ErrUnknownStatus, int(in.Previous))
	}

	if err := t.Validate(); err != nil {
		return Result{Status: in.Previous}, fmt.Errorf("evaluate: %w", err)
	}

	var result Result

	if in.Trigger == TriggerWatchdog {
		result.Move = in.Elapsed >= t.MovementAfter && in.Elapsed < t.Drowning
	}

	switch {
	case in.Elapsed >= t.Drowning:
		result.Status = StatusDrowning
		result.Alarm = in.Previous != StatusDrowning
	case in.Trigger == TriggerWatchdog && in.Previous == StatusDrowning:
		result.Status = StatusDrowning
	case in.Elapsed >= t.Warning && in.Battery >= t.LowBattery:
		result.Status = StatusWarning
	case in.Battery < t.LowBattery:
		result.Status = StatusLowBattery
	default:
		result.Status = StatusNormal
	}

	return result, nil
}
