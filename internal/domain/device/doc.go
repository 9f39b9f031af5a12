// Package device contains the core domain types of the pool monitor.
//
// Status is the derived safety state of a wearable, Snapshot is an immutable
// copy of one device's telemetry, and Evaluate is the pure status policy that
// maps telemetry, elapsed silence and the previous status to a new status.
package device
