// Package config holds build metadata shared by the incidentdesk binaries.
package config

import (
	"fmt"
	"runtime"
)

// Stamped with -ldflags "-X github.com/good-yellow-bee/incidentdesk/pkg/config.Version=v1.2.0".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildInfo describes one incidentdesk binary.
type BuildInfo struct {
	Program   string `json:"program"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo returns the build metadata for program.
func GetBuildInfo(program string) BuildInfo {
	return BuildInfo{
		Program:   program,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the one-line form printed by the version commands.
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s %s)",
		b.Program, b.Version, b.Commit, b.BuildTime, b.GoVersion, b.Platform)
}
