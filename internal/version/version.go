// Package version carries build metadata set through -ldflags -X.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for logs and -version output.
func String() string {
	return fmt.Sprintf("motion.check %s (%s, built %s)", Version, GitSHA, BuildTime)
}
