// Package config defines the pool-guard settings and provides helpers to
// load, validate and save them in YAML format.
//
// Validate fills every unset option with its default, so a missing or empty
// file yields a working five-device setup listening on :8888.
package config
