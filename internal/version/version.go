package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set at build time via -ldflags "-X github.com/flowmesh/schemagate/internal/version.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Info describes the running binary. It is served on the index route.
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

var (
	once sync.Once
	info Info
)

// Get returns version information, filling VCS details from the embedded
// build info when the binary was built without ldflags.
func Get() Info {
	once.Do(func() {
		info = Info{
			Service:   "schemagate",
			Version:   Version,
			BuildTime: BuildTime,
			GitCommit: GitCommit,
			GoVersion: runtime.Version(),
		}
		if Version != "dev" {
			return
		}
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.GitCommit == "unknown" {
					info.GitCommit = setting.Value
				}
			case "vcs.time":
				if info.BuildTime == "unknown" {
					info.BuildTime = setting.Value
				}
			}
		}
	})
	return info
}

// String returns a formatted version string
func String() string {
	i := Get()
	return fmt.Sprintf("%s %s (build time: %s, commit: %s, go: %s)",
		i.Service, i.Version, i.BuildTime, i.GitCommit, i.GoVersion)
}
