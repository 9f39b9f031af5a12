package device

import (
	"math/rand/v2"
	"time"
)

// Position is a point inside the pool.
type Position struct {
	X int
	Y int
}

// Bounds is the pool area; both axes are inclusive of zero and the maximum.
type Bounds struct {
	Width  int
	Height int
}

// Contains reports whether p lies inside the bounds.
func (b Bounds) Contains(p Position) bool {
	return p.X >= 0 && p.X <= b.Width && p.Y >= 0 && p.Y <= b.Height
}

// Random returns a uniformly distributed position inside the bounds.
func (b Bounds) Random(r *rand.Rand) Position {
	return Position{
		X: r.IntN(b.Width + 1),
		Y: r.IntN(b.Height + 1),
	}
}

// Snapshot is a point-in-time copy of one device's state.
// It is safe to hand to other goroutines.
type Snapshot struct {
	// ID is the device identifier used on the wire.
	ID string
	// Slot is the device's fixed index in configured order.
	Slot int
	// Battery is the last reported battery percentage.
	Battery int
	// Position is the last reported or simulated position.
	Position Position
	// Status is the derived safety status.
	Status Status
	// LastSignal is when the last telemetry update was accepted.
	LastSignal time.Time
}

// SameTelemetry reports whether two snapshots show the same published state.
func (s Snapshot) SameTelemetry(other Snapshot) bool {
	return s.Status == other.Status &&
		s.Battery == other.Battery &&
		s.Position == other.Position
}
