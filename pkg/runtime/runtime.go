package runtime

var (
	Version   = "0.0.0-dev"
	GitCommit = ""
	Timestamp = ""
)
