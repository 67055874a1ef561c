package version

const defaultVersion = "v0.1.0"

var (
	// Package is filled at linking time
	Package = "github.com/specbuild/gorpg"

	// Version holds the complete version number. Filled in at linking time.
	Version = defaultVersion

	// Revision is filled with the VCS (e.g. git) revision being used to build
	// the program at linking time.
	Revision = ""
)

// String renders the version, with the VCS revision when one was linked in.
func String() string {
	if Revision != "" {
		return Version + "+" + Revision
	}
	return Version
}
