package device

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the derived safety state of a device.
type Status int

// Known statuses, ordered by severity.
const (
	// StatusNormal means the device reports in time with enough battery.
	StatusNormal Status = iota
	// StatusLowBattery means the battery is below the configured threshold.
	StatusLowBattery
	// StatusWarning means the device has been silent longer than the warning timeout.
	StatusWarning
	// StatusDrowning means the device has been silent longer than the drowning timeout.
	// Only a fresh telemetry update leaves this status.
	StatusDrowning
)

// ErrUnknownStatus is returned for values outside the known statuses.
var ErrUnknownStatus = errors.New("unknown device status")

// statusNames maps statuses to their wire names.
//
//nolint:gochecknoglobals // Read-only lookup table.
var statusNames = [...]string{
	StatusNormal:     "NORMAL",
	StatusLowBattery: "LOW_BATTERY",
	StatusWarning:    "WARNING",
	StatusDrowning:   "DROWNING",
}

// statusColors are the dashboard colours of each status.
//
//nolint:gochecknoglobals // Read-only lookup table.
var statusColors = [...]string{
	StatusNormal:     "#000000",
	StatusLowBattery: "#FFA500",
	StatusWarning:    "#FFFF00",
	StatusDrowning:   "#FF0000",
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s >= StatusNormal && s <= StatusDrowning
}

// String returns the wire name, e.g. "LOW_BATTERY".
func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}

	return statusNames[s]
}

// Color returns the hex colour the dashboard renders the status with.
func (s Status) Color() string {
	if !s.Valid() {
		return statusColors[StatusNormal]
	}

	return statusColors[s]
}

// ParseStatus converts a wire name back into a Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Status(i), nil
		}
	}

	return StatusNormal, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}
