package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oshokin/pool-guard/internal/logger"
)

// Watchdog re-evaluates one device on a fixed period, independent of any
// network traffic. It never stops on evaluation errors.
type Watchdog struct {
	device   *Device
	interval time.Duration
	// stopped is checked on every tick.
	stopped atomic.Bool
}

// NewWatchdog creates a watchdog for d firing every interval.
func NewWatchdog(d *Device, interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}

	return &Watchdog{
		device:   d,
		interval: interval,
	}
}

// Run ticks until ctx is canceled or Stop is called.
func (w *Watchdog) Run(ctx context.Context) {
	ctx = logger.WithKV(ctx, "device_id", w.device.ID())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.stopped.Load() {
				return
			}

			w.tick(ctx)
		}
	}
}

// Stop asks the watchdog to exit on its next tick.
func (w *Watchdog) Stop() {
	w.stopped.Store(true)
}

// Stopped reports whether Stop has been called.
func (w *Watchdog) Stopped() bool {
	return w.stopped.Load()
}

// tick runs one evaluation; failures are logged and the next tick proceeds.
func (w *Watchdog) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Recovered panic in watchdog tick", "panic", r)
		}
	}()

	if _, err := w.device.evaluate(ctx, nil); err != nil {
		logger.ErrorKV(ctx, "Watchdog evaluation failed, keeping previous status", "error", err)
	}
}
