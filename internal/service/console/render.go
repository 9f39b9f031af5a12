package console

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/oshokin/pool-guard/internal/domain/device"
)

// renderTable writes one aligned row per device.
func renderTable(w io.Writer, devices []device.Snapshot, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "DEVICE\tSTATUS\tBATTERY\tPOSITION\tSILENT FOR")

	for _, d := range devices {
		silence := "-"
		if !d.LastSignal.IsZero() {
			silence = now.Sub(d.LastSignal).Truncate(time.Second).String()
		}

		fmt.Fprintf(tw, "%s\t%s\t%d%%\t(%d, %d)\t%s\n",
			d.ID, d.Status, d.Battery, d.Position.X, d.Position.Y, silence)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return nil
}

// tracker remembers the last seen status of every device.
type tracker struct {
	statuses map[string]device.Status
}

func newTracker() *tracker {
	return &tracker{statuses: make(map[string]device.Status)}
}

// newlyDrowning returns the devices that entered DROWNING since the last call.
// Devices seen for the first time already drowning are reported too.
func (t *tracker) newlyDrowning(devices []device.Snapshot) []device.Snapshot {
	var result []device.Snapshot

	for _, d := range devices {
		prev, seen := t.statuses[d.ID]
		if d.Status == device.StatusDrowning && (!seen || prev != device.StatusDrowning) {
			result = append(result, d)
		}

		t.statuses[d.ID] = d.Status
	}

	return result
}
