package safar

var (
	// Used for compile time versioning - to set properly, ensure to run
	// the go install/build command like the following:
	// go install -ldflags "-X github.com/Skyrin/go-safar.Sha=local -X github.com/Skyrin/go-safar.Build=infinite" ./cmd/safar-sync

	// Sha the commit sha
	Sha string
	// Build the build number
	Build string
)

// Version returns the version/build. Unstamped builds report "dev"
func Version() (string, string) {
	sha, build := Sha, Build
	if sha == "" {
		sha = "dev"
	}
	if build == "" {
		build = "dev"
	}

	return sha, build
}
