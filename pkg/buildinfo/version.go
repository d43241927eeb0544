// Package buildinfo holds the version stamped into flashplan binaries.
//
// Release builds set the variables with -ldflags, for example
//
//	-X github.com/matzehuels/flashplan/pkg/buildinfo.Version=v0.3.0
//
// and likewise for Commit and Date.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Short returns the version with an abbreviated commit, e.g. "v0.3.0+1a2b3c4".
// Development builds fall back to the VCS revision recorded by the Go
// toolchain when one is available.
func Short() string {
	commit := Commit
	if commit == "none" {
		commit = vcsRevision()
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit == "" || commit == "none" {
		return Version
	}
	return Version + "+" + commit
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// Template is the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\ncommit %s, built %s\n", Version, Commit, Date)
}
