// Package simulator implements pool-simulator, a telemetry generator that
// plays the part of the wearables for drills and development.
package simulator
