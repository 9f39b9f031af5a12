package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/oshokin/pool-guard/internal/domain/alarm"
	"github.com/oshokin/pool-guard/internal/logger"
)

// LogSink writes every alarm to the process log.
type LogSink struct{}

// Notify implements monitor.AlarmSink.
func (LogSink) Notify(ctx context.Context, event *alarm.Event) error {
	kv := []any{
		"device_id", event.Device.ID,
		"battery", event.Device.Battery,
		"x", event.Device.Position.X,
		"y", event.Device.Position.Y,
		"last_signal", event.Device.LastSignal,
	}

	if event.Forced() {
		kv = append(kv, "actor", event.Actor.String())
	}

	logger.ErrorKV(ctx, "DROWNING ALARM", kv...)

	return nil
}

// BeepSink rings the terminal bell and prints a one-line alert.
type BeepSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBeepSink writes alerts to w, usually os.Stdout.
func NewBeepSink(w io.Writer) *BeepSink {
	return &BeepSink{w: w}
}

// Notify implements monitor.AlarmSink.
func (s *BeepSink) Notify(_ context.Context, event *alarm.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := fmt.Fprintf(s.w, "\a%s ALARM: %s is drowning at (%d, %d)\n",
		event.Timestamp.Format("15:04:05"),
		event.Device.ID,
		event.Device.Position.X,
		event.Device.Position.Y)
	if err != nil {
		return fmt.Errorf("write beep: %w", err)
	}

	return nil
}

// NopSink discards alarms.
type NopSink struct{}

// Notify implements monitor.AlarmSink.
func (NopSink) Notify(context.Context, *alarm.Event) error {
	return nil
}
