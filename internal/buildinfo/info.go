// Package buildinfo carries version data stamped at link time:
//
//	go build -ldflags "-X github.com/cleared-dev/payroll/internal/buildinfo.Version=v1.2.0"
package buildinfo

import "fmt"

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the source revision.
	Commit = "none"
	// Date is the build time.
	Date = "unknown"
)

// String formats the build data for --version output.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
