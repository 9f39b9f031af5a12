// Package common holds helpers shared by several services.
//
// It provides a lightweight client for the pool-guard control API with
// per-call timeouts and a helper detecting the current system actor
// (hostname/username) for the audit trail.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
