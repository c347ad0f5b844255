package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/metaformsystems/xregistry-oci/internal/config/rules"
	"github.com/metaformsystems/xregistry-oci/internal/logger"
)

// ValidationError is an alias for rules.ValidationError
type ValidationError = rules.ValidationError

// Variable expression pattern: ${VARIABLE_NAME}
var varExprPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

var logValidation = logger.New("config:validation")

// ExpandRawVariables expands all ${VAR} expressions in configuration data
// before it is decoded, so the schema validates the expanded values.
// The first undefined variable is reported.
func ExpandRawVariables(data []byte) ([]byte, error) {
	logValidation.Print("Expanding variables in raw configuration data")
	var undefinedVars []string

	result := varExprPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])

		if envValue, exists := os.LookupEnv(varName); exists {
			logValidation.Printf("Expanded variable: %s", varName)
			return []byte(envValue)
		}

		undefinedVars = append(undefinedVars, varName)
		logValidation.Printf("Undefined variable: %s", varName)
		return match
	})

	if len(undefinedVars) > 0 {
		logValidation.Printf("Variable expansion failed: undefined variables=%v", undefinedVars)
		return nil, rules.UndefinedVariable(undefinedVars[0], "configuration")
	}

	return result, nil
}

// validateConfig applies the checks the schema cannot express
func validateConfig(cfg *Config) error {
	pkg := cfg.Package
	for _, f := range []struct {
		name, value string
	}{
		{"name", pkg.Name},
		{"version", pkg.Version},
		{"source_dir", pkg.SourceDir},
		{"artifact_name", pkg.ArtifactName},
		{"artifact_version", pkg.ArtifactVersion},
		{"build_dir", pkg.BuildDir},
	} {
		if f.value != "" && strings.TrimSpace(f.value) == "" {
			return rules.EmptyValue(f.name, "package."+f.name)
		}
	}

	if pkg.MediaType != "" {
		if err := rules.MediaTypeFormat(pkg.MediaType, "media_type", "package.media_type"); err != nil {
			return err
		}
	}
	if pkg.ConfigMediaType != "" {
		if err := rules.MediaTypeFormat(pkg.ConfigMediaType, "config_media_type", "package.config_media_type"); err != nil {
			return err
		}
	}

	reg := cfg.Registry
	if reg.Repository != "" {
		if err := rules.RepositoryReference(reg.Repository, "registry.repository"); err != nil {
			return err
		}
	}
	if reg.Password != "" && reg.Username == "" {
		return rules.MissingRequired("username", "password", "registry.username",
			"Set registry.username, e.g. username = \"${XROCI_REGISTRY_USERNAME}\"")
	}

	if cfg.Watch.DebounceMs != 0 {
		if err := rules.DebouncePositive(cfg.Watch.DebounceMs, "watch.debounce_ms"); err != nil {
			return err
		}
	}

	logValidation.Print("Configuration validation passed")
	return nil
}
