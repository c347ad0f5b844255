package rules

import (
	"fmt"
	"regexp"
	"strings"

	"oras.land/oras-go/v2/registry"
)

// Documentation URL constants
const (
	ConfigDocsURL = "https://github.com/metaformsystems/xregistry-oci/blob/main/docs/configuration.md"
	SchemaURL     = "https://github.com/metaformsystems/xregistry-oci/blob/main/internal/config/schemas/xroci-config.schema.json"
)

// mediaTypePattern follows the RFC 6838 restricted-name grammar, lowercased
var mediaTypePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9!#$&^_.+-]{0,126}/[a-z0-9][a-z0-9!#$&^_.+-]{0,126}$`)

// ValidationError represents a configuration validation error with context
type ValidationError struct {
	Field      string
	Message    string
	JSONPath   string
	Suggestion string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration error at %s: %s", e.JSONPath, e.Message))
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\nSuggestion: %s", e.Suggestion))
	}
	return sb.String()
}

// UndefinedVariable creates a ValidationError for undefined environment variables
func UndefinedVariable(varName, jsonPath string) *ValidationError {
	return &ValidationError{
		Field:      "env variable",
		Message:    fmt.Sprintf("undefined environment variable referenced: %s", varName),
		JSONPath:   jsonPath,
		Suggestion: fmt.Sprintf("Set the environment variable %s before running xroci", varName),
	}
}

// MissingRequired creates a ValidationError for a field that must be set
// because another one is
func MissingRequired(fieldName, requiredBy, jsonPath, suggestion string) *ValidationError {
	return &ValidationError{
		Field:      fieldName,
		Message:    fmt.Sprintf("'%s' is required when '%s' is set", fieldName, requiredBy),
		JSONPath:   jsonPath,
		Suggestion: suggestion,
	}
}

// EmptyValue creates a ValidationError for fields that are present but blank
func EmptyValue(fieldName, jsonPath string) *ValidationError {
	return &ValidationError{
		Field:      fieldName,
		Message:    fmt.Sprintf("%s cannot be empty or whitespace only", fieldName),
		JSONPath:   jsonPath,
		Suggestion: "Provide a value or remove the field to use the default",
	}
}

// AppendConfigDocsFooter appends standard documentation links to an error message
func AppendConfigDocsFooter(sb *strings.Builder) {
	sb.WriteString("\n\nPlease check your configuration against the xroci documentation at:")
	sb.WriteString("\n" + ConfigDocsURL)
	sb.WriteString("\n\nJSON Schema reference:")
	sb.WriteString("\n" + SchemaURL)
}

// MediaTypeFormat validates a media type such as
// application/vnd.oci.image.config.v1+json.
// Returns nil if valid, *ValidationError if invalid
func MediaTypeFormat(mediaType, fieldName, jsonPath string) *ValidationError {
	if !mediaTypePattern.MatchString(mediaType) {
		return &ValidationError{
			Field:      fieldName,
			Message:    fmt.Sprintf("invalid media type '%s' (expected 'type/subtype')", mediaType),
			JSONPath:   jsonPath,
			Suggestion: "Use a lowercase media type (e.g., 'application/vnd.dspace.xregistry.layer.v1+json')",
		}
	}
	return nil
}

// RepositoryReference validates a registry repository such as
// registry.example.com/acme/policies. A tag or digest is not allowed; the tag
// is taken from the artifact version.
// Returns nil if valid, *ValidationError if invalid
func RepositoryReference(repository, jsonPath string) *ValidationError {
	ref, err := registry.ParseReference(repository)
	if err != nil {
		return &ValidationError{
			Field:      "repository",
			Message:    fmt.Sprintf("invalid repository '%s': %v", repository, err),
			JSONPath:   jsonPath,
			Suggestion: "Use the form 'registry.example.com/namespace/name' (e.g., 'localhost:5000/acme/policies')",
		}
	}
	if ref.Reference != "" {
		return &ValidationError{
			Field:      "repository",
			Message:    fmt.Sprintf("repository '%s' must not include a tag or digest", repository),
			JSONPath:   jsonPath,
			Suggestion: fmt.Sprintf("Remove the reference and use '%s/%s'", ref.Registry, ref.Repository),
		}
	}
	return nil
}

// DebouncePositive validates that a debounce interval is at least 1ms.
// Returns nil if valid, *ValidationError if invalid
func DebouncePositive(ms int, jsonPath string) *ValidationError {
	if ms < 1 {
		return &ValidationError{
			Field:      "debounce_ms",
			Message:    fmt.Sprintf("debounce_ms must be at least 1, got %d", ms),
			JSONPath:   jsonPath,
			Suggestion: "Use a positive number of milliseconds (e.g., 300)",
		}
	}
	return nil
}
