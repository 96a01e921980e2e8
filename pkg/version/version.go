// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Build metadata. Overridden at link time, e.g.
// -X github.com/Sumatoshi-tech/listkit/pkg/version.Version=v1.2.0.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the metadata on one line.
func String() string {
	return fmt.Sprintf("listkit %s (commit %s, built %s, %s/%s)", Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
