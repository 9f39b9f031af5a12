package monitor

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/pool-guard/internal/domain/alarm"
	"github.com/oshokin/pool-guard/internal/domain/device"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []device.Snapshot
	alarms  []*alarm.Event
}

func (p *recordingPublisher) PublishChange(s device.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.changes = append(p.changes, s)
}

func (p *recordingPublisher) PublishAlarm(e *alarm.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.alarms = append(p.alarms, e)
}

func (p *recordingPublisher) alarmCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.alarms)
}

func (p *recordingPublisher) lastAlarm() *alarm.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.alarms) == 0 {
		return nil
	}

	return p.alarms[len(p.alarms)-1]
}

func intPtr(v int) *int {
	return &v
}

func testSpecs() []Spec {
	specs := make([]Spec, 0, 5)
	for _, id := range []string{"Device0", "Device1", "Device2", "Device3", "Device4"} {
		specs = append(specs, Spec{
			ID:       id,
			Battery:  intPtr(50),
			Position: &device.Position{X: 100, Y: 100},
		})
	}

	return specs
}

func newTestRegistry(t *testing.T, pub Publisher) *Registry {
	t.Helper()

	r, err := NewRegistry(testSpecs(), Options{
		Bounds:        device.Bounds{Width: 500, Height: 250},
		CheckInterval: 2 * time.Second,
		Publisher:     pub,
		Seed:          42,
	})
	require.NoError(t, err)

	return r
}

func TestNewRegistry_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(nil, Options{})
	require.ErrorIs(t, err, ErrNoDevices)

	_, err = NewRegistry([]Spec{{ID: "a"}, {ID: "a"}}, Options{})
	require.ErrorIs(t, err, ErrDuplicateDevice)

	_, err = NewRegistry([]Spec{{ID: ""}}, Options{})
	require.ErrorIs(t, err, ErrInvalidDeviceID)

	bad := device.DefaultThresholds()
	bad.Warning = bad.Drowning + time.Second

	_, err = NewRegistry([]Spec{{ID: "a"}}, Options{Thresholds: bad})
	require.ErrorIs(t, err, device.ErrInvalidThresholds)
}

func TestNewRegistry_RandomInitialState(t *testing.T) {
	t.Parallel()

	bounds := device.Bounds{Width: 500, Height: 250}

	r, err := NewRegistry([]Spec{{ID: "a"}, {ID: "b"}, {ID: "c"}}, Options{Bounds: bounds, Seed: 7})
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	for i, s := range r.Snapshots() {
		require.Equal(t, i, s.Slot)
		require.True(t, bounds.Contains(s.Position))
		require.GreaterOrEqual(t, s.Battery, 0)
		require.LessOrEqual(t, s.Battery, 100)
		require.NotEqual(t, device.StatusDrowning, s.Status)
	}
}

func TestRegistry_ApplyTelemetry(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	r := newTestRegistry(t, pub)
	ctx := t.Context()

	require.NoError(t, r.ApplyTelemetry(ctx, "Device1", 5, 10, 10))

	s, err := r.Snapshot("Device1")
	require.NoError(t, err)
	require.Equal(t, device.StatusLowBattery, s.Status)
	require.Equal(t, 5, s.Battery)
	require.Equal(t, device.Position{X: 10, Y: 10}, s.Position)
	require.Len(t, pub.changes, 1)

	// Same values again publish nothing.
	require.NoError(t, r.ApplyTelemetry(ctx, "Device1", 5, 10, 10))
	require.Len(t, pub.changes, 1)

	before := r.Snapshots()
	err = r.ApplyTelemetry(ctx, "Device9", 50, 1, 1)
	require.ErrorIs(t, err, ErrDeviceNotFound)

	after := r.Snapshots()
	for i := range before {
		require.True(t, before[i].SameTelemetry(after[i]))
	}

	_, err = r.Snapshot("Device9")
	require.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestRegistry_ForceSignalLoss(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	r := newTestRegistry(t, pub)
	ctx := t.Context()
	actor := &alarm.Actor{Username: "lifeguard", Hostname: "tower"}

	s, err := r.ForceSignalLoss(ctx, "Device2", actor)
	require.NoError(t, err)
	require.Equal(t, device.StatusDrowning, s.Status)
	require.Equal(t, 1, pub.alarmCount())

	ev := pub.lastAlarm()
	require.Equal(t, "Device2", ev.Device.ID)
	require.True(t, ev.Forced())
	require.Equal(t, "lifeguard@tower", ev.Actor.String())

	// Already drowning: no second alarm.
	s, err = r.ForceSignalLoss(ctx, "Device2", nil)
	require.NoError(t, err)
	require.Equal(t, device.StatusDrowning, s.Status)
	require.Equal(t, 1, pub.alarmCount())

	_, err = r.ForceSignalLoss(ctx, "Nobody", actor)
	require.ErrorIs(t, err, ErrDeviceNotFound)

	// Telemetry is the only way back.
	require.NoError(t, r.ApplyTelemetry(ctx, "Device2", 60, 5, 5))

	s, err = r.Snapshot("Device2")
	require.NoError(t, err)
	require.Equal(t, device.StatusNormal, s.Status)
}

// TestRegistry_WatchdogTimeline replays a silent device through WARNING and
// DROWNING and back to NORMAL on fake time.
func TestRegistry_WatchdogTimeline(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		pub := &recordingPublisher{}
		r := newTestRegistry(t, pub)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan struct{})

		go func() {
			defer close(done)
			r.Run(ctx)
		}()

		time.Sleep(13 * time.Second)
		synctest.Wait()

		s, err := r.Snapshot("Device0")
		require.NoError(t, err)
		require.Equal(t, device.StatusWarning, s.Status)
		require.Equal(t, 0, pub.alarmCount())

		time.Sleep(18 * time.Second)
		synctest.Wait()

		s, err = r.Snapshot("Device0")
		require.NoError(t, err)
		require.Equal(t, device.StatusDrowning, s.Status)

		// All five devices went silent together.
		require.Equal(t, 5, pub.alarmCount())

		require.NoError(t, r.ApplyTelemetry(ctx, "Device0", 45, 100, 50))

		time.Sleep(2 * time.Second)
		synctest.Wait()

		s, err = r.Snapshot("Device0")
		require.NoError(t, err)
		require.Equal(t, device.StatusNormal, s.Status)
		require.Equal(t, 45, s.Battery)

		// The others stay drowning and do not alarm again.
		time.Sleep(10 * time.Second)
		synctest.Wait()

		require.Equal(t, 5, pub.alarmCount())

		s, err = r.Snapshot("Device1")
		require.NoError(t, err)
		require.Equal(t, device.StatusDrowning, s.Status)

		cancel()
		<-done
	})
}

func TestRegistry_WatchdogMovesSilentDevice(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := newTestRegistry(t, nil)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan struct{})

		go func() {
			defer close(done)
			r.Run(ctx)
		}()

		time.Sleep(3 * time.Second)
		synctest.Wait()

		s, err := r.Snapshot("Device3")
		require.NoError(t, err)
		require.Equal(t, device.Position{X: 100, Y: 100}, s.Position)

		moved := false

		for range 10 {
			time.Sleep(2 * time.Second)
			synctest.Wait()

			s, err = r.Snapshot("Device3")
			require.NoError(t, err)

			if s.Position != (device.Position{X: 100, Y: 100}) {
				moved = true
			}
		}

		require.True(t, moved)

		cancel()
		<-done
	})
}

func TestRegistry_Stop(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := newTestRegistry(t, nil)
		require.False(t, r.Stopped())

		done := make(chan struct{})

		go func() {
			defer close(done)
			r.Run(t.Context())
		}()

		r.Stop()
		require.True(t, r.Stopped())
		time.Sleep(3 * time.Second)
		synctest.Wait()

		select {
		case <-done:
		default:
			t.Fatal("watchdogs still running after Stop")
		}
	})
}
