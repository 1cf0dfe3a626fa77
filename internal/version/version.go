// Package version carries build metadata stamped in with -ldflags, e.g.
//
//	-X github.com/tunematch/uiverify/internal/version.Version=v0.3.0
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"

	// Commit is the short git SHA.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// Info is the build metadata in one value.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String formats the metadata as "v0.3.0 (abc1234, built 2024-05-01) go1.24 linux/amd64".
func (i Info) String() string {
	return fmt.Sprintf("%s (%s, built %s) %s %s", i.Version, i.Commit, i.Date, i.GoVersion, i.Platform)
}
