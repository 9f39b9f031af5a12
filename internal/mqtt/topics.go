package mqtt

import "strings"

// Topics builds pool-guard topic names under a common prefix.
type Topics struct {
	Prefix string
}

// NewTopics returns topic builders rooted at prefix; surrounding slashes are trimmed.
func NewTopics(prefix string) Topics {
	return Topics{Prefix: strings.Trim(prefix, "/")}
}

// DeviceState returns the retained state topic of a device.
//
// Example: poolguard/device/Device0/state
func (t Topics) DeviceState(deviceID string) string {
	return t.Prefix + "/device/" + deviceID + "/state"
}

// DeviceAlarm returns the alarm topic of a device.
//
// Example: poolguard/device/Device0/alarm
func (t Topics) DeviceAlarm(deviceID string) string {
	return t.Prefix + "/device/" + deviceID + "/alarm"
}

// SystemStatus returns the server online/offline topic.
func (t Topics) SystemStatus() string {
	return t.Prefix + "/system/status"
}
