package server

import (
	"github.com/oshokin/pool-guard/internal/config"
	"github.com/oshokin/pool-guard/internal/domain/device"
	"github.com/oshokin/pool-guard/internal/monitor"
)

// deviceSpecs turns the configured device set into registry specs.
// Without explicit devices, DeviceCount devices named Device0..N-1 are
// created with random battery and position.
func deviceSpecs(cfg *config.Config) []monitor.Spec {
	if len(cfg.Devices) == 0 {
		ids := cfg.DeviceIDs()
		specs := make([]monitor.Spec, 0, len(ids))

		for _, id := range ids {
			specs = append(specs, monitor.Spec{ID: id})
		}

		return specs
	}

	specs := make([]monitor.Spec, 0, len(cfg.Devices))

	for _, d := range cfg.Devices {
		spec := monitor.Spec{
			ID:      d.ID,
			Battery: d.Battery,
		}

		// A position needs both coordinates; a partial one is randomised.
		if d.X != nil && d.Y != nil {
			spec.Position = &device.Position{X: *d.X, Y: *d.Y}
		}

		specs = append(specs, spec)
	}

	return specs
}

// registryOptions maps settings to the registry's policy and timing.
func registryOptions(cfg *config.Config, publisher monitor.Publisher) monitor.Options {
	return monitor.Options{
		Thresholds: device.Thresholds{
			LowBattery:    cfg.LowBatteryThreshold,
			Warning:       cfg.WarningTimeout,
			Drowning:      cfg.DrowningTimeout,
			MovementAfter: cfg.MovementAfter,
		},
		Bounds: device.Bounds{
			Width:  cfg.Pool.Width,
			Height: cfg.Pool.Height,
		},
		CheckInterval: cfg.CheckInterval,
		Publisher:     publisher,
	}
}
