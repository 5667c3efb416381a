// Package buildinfo identifies the running binary. Release builds stamp
// Version and Commit with -ldflags "-X"; other builds fall back to the
// module version and VCS settings the Go toolchain records.
package buildinfo

import (
	"runtime/debug"
	"strings"
)

// Set at link time.
var (
	Version = ""
	Commit  = ""
)

// Info describes a build.
type Info struct {
	Version string
	Commit  string
	// Modified is set when the working tree had uncommitted changes.
	Modified  bool
	GoVersion string
}

// Read merges the link-time stamps with the embedded build information.
// Stamps win over recorded values.
func Read() Info {
	info := Info{Version: strings.TrimSpace(Version), Commit: strings.TrimSpace(Commit)}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = merge(info, bi)
	}
	return info
}

func merge(info Info, bi *debug.BuildInfo) Info {
	info.GoVersion = bi.GoVersion
	if v := bi.Main.Version; info.Version == "" && v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String returns the release version, or dev-<short sha>[-dirty] for
// builds without one.
func (i Info) String() string {
	if i.Version != "" && i.Version != "dev" {
		return i.Version
	}
	s := "dev"
	if c := i.Commit; c != "" && c != "unknown" {
		s += "-" + c[:min(len(c), 7)]
	}
	if i.Modified {
		s += "-dirty"
	}
	return s
}

// String describes the running binary.
func String() string {
	return Read().String()
}
