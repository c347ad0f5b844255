package main

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/metaformsystems/xregistry-oci/internal/cmd"
)

func main() {
	cmd.SetVersion(buildVersionString())
	cmd.Execute()
}

const shortHashLength = 7

// buildVersionString joins the version with the commit and build date, taken
// from ldflags or, when those are unset, from the embedded VCS settings
func buildVersionString() string {
	parts := []string{"dev"}
	if Version != "" {
		parts[0] = Version
	}

	commit := GitCommit
	if commit == "" {
		commit = vcsSetting("vcs.revision")
		if len(commit) > shortHashLength {
			commit = commit[:shortHashLength]
		}
	}
	if commit != "" {
		parts = append(parts, fmt.Sprintf("commit: %s", commit))
	}

	built := BuildDate
	if built == "" {
		built = vcsSetting("vcs.time")
	}
	if built != "" {
		parts = append(parts, fmt.Sprintf("built: %s", built))
	}

	return strings.Join(parts, ", ")
}

// vcsSetting returns a build setting of the running binary, or ""
func vcsSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}
