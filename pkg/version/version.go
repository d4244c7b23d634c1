package version

import (
	"runtime/debug"
)

const path = "github.com/segmentio/tableview"

var version = "unknown"

// The version comes from the build information embedded in the binary, so
// it is only set for module builds, either of tableview itself or of a
// program that imports it.
func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return
	}
	if info.Main.Path == path {
		if info.Main.Version != "" {
			version = info.Main.Version
		}
		return
	}
	for _, mod := range info.Deps {
		if mod != nil && mod.Path == path {
			version = mod.Version
		}
	}
}

// Get returns the tableview version.
func Get() string {
	return version
}
