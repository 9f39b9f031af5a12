// Package mqtt wraps paho.mqtt.golang for pool-guard.
//
// It owns the broker connection, the online/offline status topic with its
// Last Will and Testament, and the topic layout used to publish device state
// and drowning alarms:
//
//	{prefix}/device/{id}/state    retained JSON snapshot
//	{prefix}/device/{id}/alarm    JSON alarm event
//	{prefix}/system/status        retained online/offline status
package mqtt
