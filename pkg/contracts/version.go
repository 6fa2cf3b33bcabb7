// Package contracts holds the types shared between the pipeline packages
// and the build metadata of the binary.
package contracts

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the release of the tool. ReportLayout changes whenever the
// workbook sheets or columns change.
const (
	Version      = "1.0.0"
	ReportLayout = "1"
)

// Set at build time with -ldflags "-X github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts.GitCommit=...".
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version      string `json:"version"`
	ReportLayout string `json:"report_layout"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
}

// ReadBuildInfo returns the build metadata. When no commit was stamped
// with ldflags the VCS revision recorded by the go tool is used.
func ReadBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:      Version,
		ReportLayout: ReportLayout,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.GitCommit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.GitCommit = s.Value
			case "vcs.time":
				if info.BuildTime == "unknown" {
					info.BuildTime = s.Value
				}
			}
		}
	}
	return info
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("Local Marine Economy v%s (report layout %s, built: %s, commit: %s, %s, %s)",
		b.Version, b.ReportLayout, b.BuildTime, b.GitCommit, b.GoVersion, b.Platform)
}

// UserAgent identifies the tool to the statistics API.
func UserAgent() string {
	return "local-marine-economy/" + Version
}
