// Package version provides build version information for pathbrowser.
package version

// Version and BuildTime are overwritten from cmd/pathbrowser, which receives
// them through -ldflags.
var (
	Version   = "v0.3.0-dev"
	BuildTime = "unknown"
)

// maxAppID is the longest application ID Azure accepts in its telemetry header.
const maxAppID = 24

// AppID identifies pathbrowser to the cloud SDKs, e.g. "pathbrowser/v0.3.0".
func AppID() string {
	id := "pathbrowser/" + Version
	if len(id) > maxAppID {
		id = id[:maxAppID]
	}
	return id
}
