package context

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// VersionInfo describes the build of the application.
type VersionInfo struct {
	Semantic  string
	Commit    string
	Dirty     bool
	GoVersion string
}

// GetVersion returns the version information embedded in the binary by the Go
// toolchain.
func GetVersion() (*VersionInfo, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, errors.New("failed reading build information")
	}

	vi := &VersionInfo{Semantic: bi.Main.Version, GoVersion: bi.GoVersion}
	if vi.Semantic == "" {
		vi.Semantic = "(devel)"
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			vi.Commit = s.Value
		case "vcs.modified":
			vi.Dirty = s.Value == "true"
		}
	}

	return vi, nil
}

// String returns a human-readable version string.
func (vi *VersionInfo) String() string {
	commit := vi.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit == "" {
		return fmt.Sprintf("%s (%s)", vi.Semantic, vi.GoVersion)
	}
	if vi.Dirty {
		commit += "-dirty"
	}

	return fmt.Sprintf("%s-%s (%s)", vi.Semantic, commit, vi.GoVersion)
}
