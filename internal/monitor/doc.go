// Package monitor is the device monitoring engine.
//
// A Registry owns one Device per configured wearable for the lifetime of the
// process. Telemetry updates arrive through Registry.ApplyTelemetry from any
// number of ingestion goroutines, while one Watchdog per device re-evaluates
// the status from elapsed silence on a fixed period. Each Device serialises
// both paths behind its own mutex; there is no lock spanning devices.
//
// Changes are published to a Publisher while the device lock is held, so
// publishing never blocks. The Bus implementation queues alarms in order,
// keeps only the latest pending change per device and delivers both to
// StateObserver and AlarmSink implementations from a single goroutine.
package monitor
