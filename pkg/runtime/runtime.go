package runtime

var (
	// Version of the build, set at compile time via ldflags
	Version   = "dev"
	GitCommit = "unknown"
	Timestamp = "unknown"
)
