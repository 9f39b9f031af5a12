package monitor

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/pool-guard/internal/domain/device"
)

// devicesField is the list key of a ListDevices response.
const devicesField = "devices"

// ErrMalformedSnapshot is returned when a Struct does not describe a device.
var ErrMalformedSnapshot = errors.New("malformed device snapshot")

// ToStruct converts a snapshot to its wire form.
func ToStruct(s device.Snapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(toMap(s))
}

func toMap(s device.Snapshot) map[string]any {
	m := map[string]any{
		"id":      s.ID,
		"slot":    s.Slot,
		"battery": s.Battery,
		"x":       s.Position.X,
		"y":       s.Position.Y,
		"status":  s.Status.String(),
		"color":   s.Status.Color(),
	}

	if !s.LastSignal.IsZero() {
		m["last_signal"] = s.LastSignal.UTC().Format(time.RFC3339Nano)
	}

	return m
}

// ListToStruct converts snapshots to {"devices": [...]}.
func ListToStruct(snapshots []device.Snapshot) (*structpb.Struct, error) {
	devices := make([]any, 0, len(snapshots))
	for _, s := range snapshots {
		devices = append(devices, toMap(s))
	}

	return structpb.NewStruct(map[string]any{devicesField: devices})
}

// FromStruct converts the wire form back to a snapshot.
func FromStruct(st *structpb.Struct) (device.Snapshot, error) {
	fields := st.GetFields()

	id := fields["id"].GetStringValue()
	if id == "" {
		return device.Snapshot{}, fmt.Errorf("%w: missing id", ErrMalformedSnapshot)
	}

	status, err := device.ParseStatus(fields["status"].GetStringValue())
	if err != nil {
		return device.Snapshot{}, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	s := device.Snapshot{
		ID:      id,
		Slot:    int(fields["slot"].GetNumberValue()),
		Battery: int(fields["battery"].GetNumberValue()),
		Position: device.Position{
			X: int(fields["x"].GetNumberValue()),
			Y: int(fields["y"].GetNumberValue()),
		},
		Status: status,
	}

	if raw := fields["last_signal"].GetStringValue(); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return device.Snapshot{}, fmt.Errorf("%w: last_signal: %w", ErrMalformedSnapshot, err)
		}

		s.LastSignal = ts
	}

	return s, nil
}

// ListFromStruct converts a ListDevices response back to snapshots.
func ListFromStruct(st *structpb.Struct) ([]device.Snapshot, error) {
	values := st.GetFields()[devicesField].GetListValue().GetValues()
	result := make([]device.Snapshot, 0, len(values))

	for i, v := range values {
		s, err := FromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}

		result = append(result, s)
	}

	return result, nil
}
