package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/pool-guard/internal/domain/device"
)

func TestRenderTable(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 1, 12, 0, 31, 0, time.UTC)

	var buf bytes.Buffer

	require.NoError(t, renderTable(&buf, []device.Snapshot{
		{
			ID:         "Device0",
			Battery:    45,
			Position:   device.Position{X: 100, Y: 50},
			Status:     device.StatusDrowning,
			LastSignal: now.Add(-31 * time.Second),
		},
		{ID: "Device1", Battery: 5, Status: device.StatusLowBattery},
	}, now))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "DEVICE"))
	require.Contains(t, lines[1], "DROWNING")
	require.Contains(t, lines[1], "31s")
	require.Contains(t, lines[1], "(100, 50)")
	require.Contains(t, lines[2], "LOW_BATTERY")
	require.True(t, strings.HasSuffix(lines[2], "-"))
}

func TestTracker_NewlyDrowning(t *testing.T) {
	t.Parallel()

	tr := newTracker()

	normal := device.Snapshot{ID: "Device0", Status: device.StatusNormal}
	drowning := device.Snapshot{ID: "Device0", Status: device.StatusDrowning}
	already := device.Snapshot{ID: "Device1", Status: device.StatusDrowning}

	require.Len(t, tr.newlyDrowning([]device.Snapshot{normal, already}), 1)
	require.Len(t, tr.newlyDrowning([]device.Snapshot{drowning, already}), 1)
	require.Empty(t, tr.newlyDrowning([]device.Snapshot{drowning, already}))
	require.Empty(t, tr.newlyDrowning([]device.Snapshot{normal, already}))
	require.Len(t, tr.newlyDrowning([]device.Snapshot{drowning}), 1)
}
