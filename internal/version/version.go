// Package version carries the sitedex build identity, stamped via ldflags:
//
//	-X github.com/sitedex/sitedex/internal/version.Version=...
//	-X github.com/sitedex/sitedex/internal/version.Commit=...
//	-X github.com/sitedex/sitedex/internal/version.BuildTime=...
package version

var (
	// Version is the semantic version, "dev" for unstamped builds.
	Version = "dev"

	// Commit is the short git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp in RFC3339 format.
	BuildTime = "unknown"
)

// BuildInfo is the build identity reported by the health endpoints.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// Info returns the stamped build identity.
func Info() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
	}
}
