// Package tty inspects the process environment: containers and terminals.
package tty

import (
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
)

var logContainer = logger.New("tty:container")

// Probe locations, replaced in tests
var (
	dockerEnvPath = "/.dockerenv"
	cgroupPath    = "/proc/1/cgroup"
)

var cgroupMarkers = []string{"docker", "containerd", "kubepods", "lxc", "podman"}

// IsRunningInContainer detects if the current process is running inside a container
func IsRunningInContainer() bool {
	if _, err := os.Stat(dockerEnvPath); err == nil {
		logContainer.Printf("Container detected via %s", dockerEnvPath)
		return true
	}

	if data, err := os.ReadFile(cgroupPath); err == nil {
		content := string(data)
		for _, marker := range cgroupMarkers {
			if strings.Contains(content, marker) {
				logContainer.Printf("Container detected via cgroup marker %q", marker)
				return true
			}
		}
	}

	if os.Getenv("RUNNING_IN_CONTAINER") == "true" {
		logContainer.Print("Container detected via RUNNING_IN_CONTAINER env var")
		return true
	}

	return false
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
