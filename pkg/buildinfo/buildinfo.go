package buildinfo

import "runtime"

// These vars are set at build time via ldflags:
// -X github.com/shaurya-ahuja/quicknotes-ai/pkg/buildinfo.Version=v0.3.0
// -X github.com/shaurya-ahuja/quicknotes-ai/pkg/buildinfo.Commit=abc1234
// -X github.com/shaurya-ahuja/quicknotes-ai/pkg/buildinfo.BuildTime=2026-08-31T10:30:00Z
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info holds build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the binary's build info.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String returns a human-readable one-liner like "v0.3.0 (abc1234, 2026-08-31T10:30:00Z)"
func String() string {
	return Version + " (" + Commit + ", " + BuildTime + ")"
}
