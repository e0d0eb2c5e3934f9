package version

import (
	"runtime"
	"runtime/debug"
)

// Version is overridden at build time with -ldflags "-X ...version.Version=v1.2.3".
var Version = "dev"

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	info := Info{Version: Version, GoVersion: runtime.Version()}

	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Revision = setting.Value
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}

	return info
}

// UserAgent identifies ca to the registry.
func UserAgent() string {
	return "cookie-accounts-cli/" + Version
}
