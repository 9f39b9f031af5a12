package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// telemetryFields is the number of tokens in one telemetry line.
const telemetryFields = 4

var (
	// ErrTokenCount is returned when a line does not have exactly four tokens.
	ErrTokenCount = errors.New("telemetry line must have 4 fields")
	// ErrInvalidField is returned when battery or coordinates are not integers.
	ErrInvalidField = errors.New("invalid telemetry field")
)

// Telemetry is one parsed wire update.
type Telemetry struct {
	DeviceID string
	Battery  int
	X        int
	Y        int
}

// ParseLine parses "<deviceId> <battery> <x> <y>". Tokens are separated by
// any run of whitespace; surrounding whitespace and a trailing '\r' are ignored.
func ParseLine(line string) (Telemetry, error) {
	fields := strings.Fields(line)
	if len(fields) != telemetryFields {
		return Telemetry{}, fmt.Errorf("%w: got %d", ErrTokenCount, len(fields))
	}

	values := [3]int{}

	for i, name := range [...]string{"battery", "x", "y"} {
		v, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return Telemetry{}, fmt.Errorf("%w: %s %q", ErrInvalidField, name, fields[i+1])
		}

		values[i] = v
	}

	return Telemetry{
		DeviceID: fields[0],
		Battery:  values[0],
		X:        values[1],
		Y:        values[2],
	}, nil
}
