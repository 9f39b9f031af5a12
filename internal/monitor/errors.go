package monitor

import "errors"

var (
	// ErrDeviceNotFound is returned for identifiers outside the configured set.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrNoDevices is returned when a registry would be built without devices.
	ErrNoDevices = errors.New("no devices configured")
	// ErrDuplicateDevice is returned when an identifier is configured twice.
	ErrDuplicateDevice = errors.New("duplicate device id")
	// ErrInvalidDeviceID is returned for empty identifiers.
	ErrInvalidDeviceID = errors.New("device id must not be empty")
)
