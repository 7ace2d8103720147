// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata stamped into the binary at link time:
//
//	go build -ldflags "-X tuner/pkg/build.buildVersion=0.2.0 -X tuner/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Any flag left unset keeps its development default, so a plain `go build`
// or `go run .` still produces a usable binary.
package build

import (
	"fmt"
	"time"
)

const (
	DefaultName        = "tuner"
	DefaultDescription = "Real-time pitch detector and instrument tuner"
	DefaultVersion     = "dev"
	unknown            = "unknown"
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultFlags()
)

func defaultFlags() *ldFlags {
	return &ldFlags{
		Name:        DefaultName,
		Description: DefaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     DefaultVersion,
	}
}

// Initialize copies the linker-provided values over the defaults. A build
// time that is set but not RFC 3339 is rejected so release artefacts carry
// a sortable stamp.
func Initialize() error {
	flags := defaultFlags()

	if buildName != "" {
		flags.Name = buildName
	}
	if buildTime != "" {
		if _, err := time.Parse(time.RFC3339, buildTime); err != nil {
			return fmt.Errorf("build time %q is not RFC 3339: %w", buildTime, err)
		}
		flags.Time = buildTime
	}
	if buildCommit != "" {
		flags.Commit = buildCommit
	}
	if buildVersion != "" {
		flags.Version = buildVersion
	}

	buildFlags = flags
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// Released reports whether the binary was stamped with a version.
func (f *ldFlags) Released() bool {
	return f.Version != DefaultVersion
}

// String renders the version line printed at startup and by --version.
func (f *ldFlags) String() string {
	if !f.Released() {
		return fmt.Sprintf("%s %s", f.Name, f.Version)
	}
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
