// Package version reports the deckforge build version. Release builds set
// it with
//
//	go build -ldflags "-X github.com/ramonehamilton/deckforge/internal/version.Version=v1.2.3"
package version

import "runtime/debug"

// Version is the version stamped at link time.
var Version = "dev"

// String returns Version, falling back to the module version recorded by
// "go install" when nothing was stamped.
func String() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
