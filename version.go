package teletap

// Version information for the teletap pipeline
const (
	// Version is the current release version
	Version = "development"

	// BuildDate is set during build time
	BuildDate = "development"

	// GitCommit is set during build time
	GitCommit = "unknown"
)
