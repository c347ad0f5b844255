package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"oras.land/oras-go/v2/registry"

	"github.com/metaformsystems/xregistry-oci/internal/tty"
)

// Environment variables read by xroci besides those referenced in the file
const (
	EnvSourceDateEpoch  = "SOURCE_DATE_EPOCH"
	EnvRegistryUsername = "XROCI_REGISTRY_USERNAME"
	EnvRegistryPassword = "XROCI_REGISTRY_PASSWORD"
)

// EnvValidationResult holds the result of environment validation.
// ValidationErrors prevent a build; ValidationWarnings are reported only.
type EnvValidationResult struct {
	IsContainerized    bool
	ValidationErrors   []string
	ValidationWarnings []string
}

// IsValid returns true if all critical validations passed
func (r *EnvValidationResult) IsValid() bool {
	return len(r.ValidationErrors) == 0
}

// Error returns a combined error message for all validation errors
func (r *EnvValidationResult) Error() string {
	if r.IsValid() {
		return ""
	}
	return fmt.Sprintf("Environment validation failed:\n  - %s", strings.Join(r.ValidationErrors, "\n  - "))
}

// ValidateExecutionEnvironment checks the environment a build or push will
// run in against the loaded configuration
func ValidateExecutionEnvironment(cfg *Config) *EnvValidationResult {
	result := &EnvValidationResult{}
	result.IsContainerized = tty.IsRunningInContainer()

	if epoch, ok := os.LookupEnv(EnvSourceDateEpoch); ok && epoch != "" {
		if _, err := strconv.ParseInt(epoch, 10, 64); err != nil {
			result.ValidationErrors = append(result.ValidationErrors,
				fmt.Sprintf("%s must be a Unix timestamp in seconds, got %q", EnvSourceDateEpoch, epoch))
		}
	}

	if cfg == nil || cfg.Registry.Repository == "" {
		return result
	}

	if result.IsContainerized && isLoopbackRegistry(cfg.Registry.Repository) {
		result.ValidationWarnings = append(result.ValidationWarnings,
			fmt.Sprintf("Registry %s refers to the container itself; use host.docker.internal or the registry's network name", cfg.Registry.Repository))
	}

	username, password := RegistryCredentials(cfg)
	if username != "" && password == "" {
		result.ValidationWarnings = append(result.ValidationWarnings,
			fmt.Sprintf("Registry username is set but no password; set registry.password or %s", EnvRegistryPassword))
	}

	return result
}

// RegistryCredentials returns the configured credentials, falling back to
// XROCI_REGISTRY_USERNAME and XROCI_REGISTRY_PASSWORD
func RegistryCredentials(cfg *Config) (username, password string) {
	if cfg != nil {
		username, password = cfg.Registry.Username, cfg.Registry.Password
	}
	if username == "" {
		username = os.Getenv(EnvRegistryUsername)
	}
	if password == "" {
		password = os.Getenv(EnvRegistryPassword)
	}
	return username, password
}

func isLoopbackRegistry(repository string) bool {
	ref, err := registry.ParseReference(repository)
	if err != nil {
		return false
	}
	host := ref.Host()
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host == "localhost" || host == "127.0.0.1"
}
