package device

import "time"

// View is the JSON form of a snapshot shared by the dashboard and MQTT.
type View struct {
	ID         string    `json:"id"`
	Slot       int       `json:"slot"`
	Battery    int       `json:"battery"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Status     string    `json:"status"`
	Color      string    `json:"color"`
	LastSignal time.Time `json:"last_signal"`
}

// View converts the snapshot for JSON encoding.
func (s Snapshot) View() View {
	return View{
		ID:         s.ID,
		Slot:       s.Slot,
		Battery:    s.Battery,
		X:          s.Position.X,
		Y:          s.Position.Y,
		Status:     s.Status.String(),
		Color:      s.Status.Color(),
		LastSignal: s.LastSignal.UTC(),
	}
}
