// Package version holds the service identity and build metadata.
package version

// Name identifies the service in logs and outgoing User-Agent headers.
const Name = "facedex"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent returns the User-Agent sent on outgoing HTTP requests.
func UserAgent() string {
	return Name + "/" + Version
}
