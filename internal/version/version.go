package version

import "fmt"

// Product is the name shared by every pool-guard binary.
const Product = "pool-guard"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the product, version, commit and build time on one line.
func Full() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Product, Version, Commit, BuildTime)
}

// For returns the version line of one binary, e.g. "pool-server: pool-guard 0.1.0 (...)".
func For(binary string) string {
	if binary == "" {
		return Full()
	}

	return binary + ": " + Full()
}
