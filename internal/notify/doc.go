// Package notify delivers drowning alarms and device state to the outside
// world: the process log, the terminal bell and an MQTT broker.
package notify
