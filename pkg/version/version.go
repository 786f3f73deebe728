// Package version is stamped at build time with
// -ldflags "-X github.com/veesix-networks/osvswitch/pkg/version.Version=...".
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func Full() string {
	return fmt.Sprintf("osvswitchd %s (commit %s, built %s)", Version, Commit, Date)
}
