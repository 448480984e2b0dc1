// Package version carries the build identity stamped in at link time.
package version

import (
	"strconv"
	"time"
)

const DevelopmentVersion = "dev"

// Set via -ldflags at build time.
var (
	ProductVersion = DevelopmentVersion
	CommitHash     = ""
	BuildTimestamp = "" // unix seconds
)

type VersionOutput struct {
	Version    string `json:"version"`
	CommitHash string `json:"commitHash,omitempty"`
	BuildTime  string `json:"buildTimestamp,omitempty"`
}

func Version() VersionOutput {
	out := VersionOutput{
		Version:    ProductVersion,
		CommitHash: CommitHash,
	}
	if BuildTimestamp != "" {
		if seconds, err := strconv.ParseInt(BuildTimestamp, 10, 64); err == nil {
			out.BuildTime = time.Unix(seconds, 0).UTC().Format(time.RFC3339)
		}
	}
	return out
}
