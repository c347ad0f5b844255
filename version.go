package main

// Set at release time with -ldflags "-X main.Version=... -X main.GitCommit=... -X main.BuildDate=..."
var (
	// Version is the xroci release, e.g. "v0.3.0"
	Version = "dev"

	GitCommit = ""

	// BuildDate is RFC 3339
	BuildDate = ""
)
