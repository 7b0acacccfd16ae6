// SPDX-License-Identifier: MIT
//
// Package build exposes the name, version, commit and build time embedded
// at link time:
//
//	go build -ldflags "-X audiolink/pkg/build.buildName=audiolink \
//	  -X audiolink/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds without ldflags fall back to the VCS stamp Go writes
// into the binary, then to "unknown".
package build

import (
	"errors"
	"fmt"
	"runtime/debug"
)

const unknown = "unknown"

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders the info for --version output.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() Info {
	return Info{
		Name:        "audiolink",
		Description: "Stream audio from a device link with live playback, recording and spectrum analysis",
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}
}

// readBuildInfo is replaceable in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize copies the ldflags values into the build info. Every missing
// flag is reported in the returned error; fields still get the best value
// available so the caller may treat the error as a warning.
func Initialize() error {
	info := defaultInfo()
	var errs []error

	set := func(dst *string, val, flag string) {
		if val == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = val
	}
	set(&info.Name, buildName, "BuildName")
	set(&info.Time, buildTime, "BuildTime")
	set(&info.Commit, buildCommit, "BuildCommit")
	set(&info.Version, buildVersion, "BuildVersion")

	if len(errs) > 0 {
		fillFromVCS(&info)
	}
	buildInfo = info
	return errors.Join(errs...)
}

func fillFromVCS(info *Info) {
	bi, ok := readBuildInfo()
	if !ok {
		return
	}
	if info.Version == unknown && bi.Main.Version != "" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == unknown {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Time == unknown {
				info.Time = s.Value
			}
		}
	}
}

// Get returns the current build information.
func Get() Info {
	return buildInfo
}
