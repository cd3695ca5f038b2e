// Package version reports the ixtopo build.
package version

import "fmt"

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/newtron-network/ixtopo/pkg/version.Version=v0.3.0 \
//	  -X github.com/newtron-network/ixtopo/pkg/version.GitCommit=abc1234 \
//	  -X github.com/newtron-network/ixtopo/pkg/version.BuildDate=2026-01-01T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns the version line printed by "ixtopo version"
func Info() string {
	return fmt.Sprintf("ixtopo %s (%s) built %s", Version, GitCommit, BuildDate)
}
