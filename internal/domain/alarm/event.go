package alarm

import (
	"strings"
	"time"

	"github.com/oshokin/pool-guard/internal/domain/device"
)

// Actor identifies who performed an action in the system.
type Actor struct {
	// Hostname is the machine name where the action was performed.
	Hostname string
	// Username is the system user who triggered the action.
	Username string
}

// ParseActor reads the "user@host" form produced by Actor.String.
// It returns nil for an empty input.
func ParseActor(s string) *Actor {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	user, host, found := strings.Cut(s, "@")
	if !found {
		return &Actor{Username: s}
	}

	return &Actor{
		Hostname: host,
		Username: user,
	}
}

// String renders the actor as "user@host".
func (a *Actor) String() string {
	if a == nil {
		return ""
	}

	if a.Hostname == "" {
		return a.Username
	}

	return a.Username + "@" + a.Hostname
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// Event is one drowning alarm.
type Event struct {
	// Device is the device state at the moment the alarm was raised.
	Device device.Snapshot
	// Actor is set when the signal loss was forced through the control API.
	Actor *Actor
	// Timestamp is when the alarm was raised.
	Timestamp time.Time
}

// Forced reports whether the alarm came from a forced signal loss.
func (e *Event) Forced() bool {
	return e.Actor != nil
}

// Clone returns a copy of the event to avoid leaking internal references.
func (e *Event) Clone() *Event {
	return &Event{
		Device:    e.Device,
		Actor:     e.Actor.Clone(),
		Timestamp: e.Timestamp,
	}
}
