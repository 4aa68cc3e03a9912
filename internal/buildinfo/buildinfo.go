// Package buildinfo carries the identity stamped into macrorec at link time:
//
//	go build -ldflags "-X github.com/offlinefirst/macroreplay/internal/buildinfo.version=v1.2.0 \
//	  -X github.com/offlinefirst/macroreplay/internal/buildinfo.commit=abc1234" ./cmd/macrorec
package buildinfo

import "runtime/debug"

// Name is the binary name shown in help and version output.
const Name = "macrorec"

var (
	version = "dev"
	commit  = ""
)

// Version returns the stamped release, falling back to the module version recorded
// by the Go toolchain and finally "dev".
func Version() string {
	if version != "dev" && version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// Commit returns the stamped commit, or the VCS revision embedded by the toolchain.
func Commit() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				if len(s.Value) > 7 {
					return s.Value[:7]
				}
				return s.Value
			}
		}
	}
	return ""
}

// String joins name, version and commit, e.g. "macrorec v1.2.0+abc1234".
func String() string {
	s := Name + " " + Version()
	if c := Commit(); c != "" {
		s += "+" + c
	}
	return s
}
