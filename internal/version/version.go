// Package version holds the build version, set at link time.
package version

// Version is the client version, overridden by the release build.
var Version = "dev"
