// Package version reports build metadata stamped in with -ldflags
package version

// BuildInfo holds build metadata
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// stamped with -ldflags "-X syncengine/internal/core/version.version=v0.3.0 -X ...commit=abcd"
var (
	service = "syncengine"
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the build metadata
func Info() BuildInfo {
	return BuildInfo{Service: service, Version: version, Commit: commit, Date: date}
}

// String renders "service version (commit, date)" for startup logs
func (b BuildInfo) String() string {
	return b.Service + " " + b.Version + " (" + b.Commit + ", " + b.Date + ")"
}
