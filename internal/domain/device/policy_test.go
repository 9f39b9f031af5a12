package device

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestEvaluate_Rules walks every rule of the policy in priority order.
func TestEvaluate_Rules(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()

	cases := []struct {
		name string
		in   Input
		want Result
	}{
		{
			name: "drowning entry alarms",
			in:   Input{Previous: StatusWarning, Battery: 50, Elapsed: 31 * time.Second, Trigger: TriggerWatchdog},
			want: Result{Status: StatusDrowning, Alarm: true},
		},
		{
			name: "drowning stays without alarm",
			in:   Input{Previous: StatusDrowning, Battery: 50, Elapsed: 40 * time.Second, Trigger: TriggerWatchdog},
			want: Result{Status: StatusDrowning},
		},
		{
			name: "watchdog cannot clear drowning",
			in:   Input{Previous: StatusDrowning, Battery: 50, Elapsed: 0, Trigger: TriggerWatchdog},
			want: Result{Status: StatusDrowning},
		},
		{
			name: "telemetry clears drowning",
			in:   Input{Previous: StatusDrowning, Battery: 45, Elapsed: 0, Trigger: TriggerTelemetry},
			want: Result{Status: StatusNormal},
		},
		{
			name: "telemetry clears drowning into low battery",
			in:   Input{Previous: StatusDrowning, Battery: 3, Elapsed: 0, Trigger: TriggerTelemetry},
			want: Result{Status: StatusLowBattery},
		},
		{
			name: "warning after silence",
			in:   Input{Previous: StatusNormal, Battery: 50, Elapsed: 12 * time.Second, Trigger: TriggerWatchdog},
			want: Result{Status: StatusWarning, Move: true},
		},
		{
			name: "low battery wins over warning",
			in:   Input{Previous: StatusNormal, Battery: 9, Elapsed: 12 * time.Second, Trigger: TriggerWatchdog},
			want: Result{Status: StatusLowBattery, Move: true},
		},
		{
			name: "battery at threshold is normal",
			in:   Input{Previous: StatusLowBattery, Battery: 10, Elapsed: time.Second, Trigger: TriggerWatchdog},
			want: Result{Status: StatusNormal},
		},
		{
			name: "movement window starts at five seconds",
			in:   Input{Previous: StatusNormal, Battery: 80, Elapsed: 5 * time.Second, Trigger: TriggerWatchdog},
			want: Result{Status: StatusNormal, Move: true},
		},
		{
			name: "telemetry never moves",
			in:   Input{Previous: StatusNormal, Battery: 80, Elapsed: 0, Trigger: TriggerTelemetry},
			want: Result{Status: StatusNormal},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Evaluate(th, tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestEvaluate_Idempotent checks that the same non-drowning input always yields the same status.
func TestEvaluate_Idempotent(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	r := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // Deterministic test input.

	for range 500 {
		in := Input{
			Previous: Status(r.IntN(int(StatusDrowning))),
			Battery:  r.IntN(101),
			Elapsed:  time.Duration(r.IntN(int(th.Drowning/time.Millisecond))) * time.Millisecond,
			Trigger:  Trigger(r.IntN(2)),
		}

		first, err := Evaluate(th, in)
		require.NoError(t, err)

		second, err := Evaluate(th, in)
		require.NoError(t, err)

		require.Equal(t, first, second)
		require.NotEqual(t, StatusDrowning, first.Status)
		require.False(t, first.Alarm)
	}
}

// TestEvaluate_WatchdogNeverLeavesDrowning checks the liveness contract for any elapsed value.
func TestEvaluate_WatchdogNeverLeavesDrowning(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()

	for elapsed := time.Duration(0); elapsed <= time.Minute; elapsed += 500 * time.Millisecond {
		for battery := 0; battery <= 100; battery += 5 {
			got, err := Evaluate(th, Input{
				Previous: StatusDrowning,
				Battery:  battery,
				Elapsed:  elapsed,
				Trigger:  TriggerWatchdog,
			})
			require.NoError(t, err)
			require.Equal(t, StatusDrowning, got.Status)
			require.False(t, got.Alarm)
		}
	}
}

// TestEvaluate_Errors keeps the previous status on invalid input.
func TestEvaluate_Errors(t *testing.T) {
	t.Parallel()

	got, err := Evaluate(DefaultThresholds(), Input{Previous: Status(42)})
	require.ErrorIs(t, err, ErrUnknownStatus)
	require.Equal(t, Status(42), got.Status)

	bad := DefaultThresholds()
	bad.Warning = bad.Drowning

	got, err = Evaluate(bad, Input{Previous: StatusWarning, Battery: 50})
	require.ErrorIs(t, err, ErrInvalidThresholds)
	require.Equal(t, StatusWarning, got.Status)
}

// TestStatus_Names covers String, Color and ParseStatus.
func TestStatus_Names(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusNormal, StatusLowBattery, StatusWarning, StatusDrowning} {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
		require.NotEmpty(t, s.Color())
	}

	require.Equal(t, "LOW_BATTERY", StatusLowBattery.String())
	require.Equal(t, "#FF0000", StatusDrowning.Color())
	require.Equal(t, "Status(7)", Status(7).String())

	_, err := ParseStatus("SWIMMING")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

// TestBounds_Random keeps generated positions inside the pool.
func TestBounds_Random(t *testing.T) {
	t.Parallel()

	b := Bounds{Width: 500, Height: 250}
	r := rand.New(rand.NewPCG(3, 4)) //nolint:gosec // Deterministic test input.

	for range 1000 {
		require.True(t, b.Contains(b.Random(r)))
	}

	require.False(t, b.Contains(Position{X: 501, Y: 0}))
	require.False(t, b.Contains(Position{X: 0, Y: -1}))
}
