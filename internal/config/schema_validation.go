package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/metaformsystems/xregistry-oci/internal/config/rules"
)

//go:embed schemas/xroci-config.schema.json
var schemaJSON []byte

var (
	// toolVersion stores the version string to include in error messages
	toolVersion = "dev"

	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// SetVersion sets the xroci version for error reporting
func SetVersion(version string) {
	if version != "" {
		toolVersion = version
	}
}

func configSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft7

		if err := compiler.AddResource(rules.SchemaURL, bytes.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(rules.SchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("failed to compile schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// validateJSONSchema validates the configuration, converted to JSON, against
// the embedded schema
func validateJSONSchema(data []byte) error {
	schema, err := configSchema()
	if err != nil {
		return err
	}

	var configObj interface{}
	if err := json.Unmarshal(data, &configObj); err != nil {
		return fmt.Errorf("failed to parse configuration JSON: %w", err)
	}

	if err := schema.Validate(configObj); err != nil {
		return formatSchemaError(err)
	}
	return nil
}

// formatSchemaError formats JSON schema validation errors to be user-friendly
func formatSchemaError(err error) error {
	if err == nil {
		return nil
	}

	if ve, ok := err.(*jsonschema.ValidationError); ok {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Configuration validation error (xroci version: %s):\n\n", toolVersion))
		formatValidationErrorRecursive(ve, &sb, 0)
		rules.AppendConfigDocsFooter(&sb)
		return fmt.Errorf("%s", sb.String())
	}

	return fmt.Errorf("configuration validation error (version: %s): %s", toolVersion, err.Error())
}

// formatValidationErrorRecursive formats validation errors with indentation per depth
func formatValidationErrorRecursive(ve *jsonschema.ValidationError, sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)

	location := ve.InstanceLocation
	if location == "" {
		location = "<root>"
	}
	sb.WriteString(fmt.Sprintf("%sLocation: %s\n", indent, location))
	sb.WriteString(fmt.Sprintf("%sError: %s\n", indent, ve.Message))

	if context := formatErrorContext(ve, indent); context != "" {
		sb.WriteString(context)
	}

	for _, cause := range ve.Causes {
		formatValidationErrorRecursive(cause, sb, depth+1)
	}

	if depth == 0 {
		sb.WriteString("\n")
	}
}

// formatErrorContext explains the common failure kinds
func formatErrorContext(ve *jsonschema.ValidationError, prefix string) string {
	var sb strings.Builder
	msg := ve.Message

	if strings.Contains(msg, "additionalProperties") || strings.Contains(msg, "additional property") {
		sb.WriteString(fmt.Sprintf("%sDetails: Configuration contains field(s) that are not defined in the schema\n", prefix))
		sb.WriteString(fmt.Sprintf("%s  → Check for typos in field names or remove unsupported fields\n", prefix))
	}

	if strings.Contains(msg, "expected") && (strings.Contains(msg, "but got") || strings.Contains(msg, "type")) {
		sb.WriteString(fmt.Sprintf("%sDetails: Type mismatch - the value type doesn't match what's expected\n", prefix))
		sb.WriteString(fmt.Sprintf("%s  → Verify the value is the correct type (string, integer, boolean, table)\n", prefix))
	}

	if strings.Contains(msg, "does not match pattern") {
		sb.WriteString(fmt.Sprintf("%sDetails: Value format is incorrect\n", prefix))
		sb.WriteString(fmt.Sprintf("%s  → Artifact names and versions must be valid OCI repository names and tags\n", prefix))
	}

	if ve.KeywordLocation != "" && ve.KeywordLocation != ve.InstanceLocation {
		sb.WriteString(fmt.Sprintf("%sSchema location: %s\n", prefix, ve.KeywordLocation))
	}

	return sb.String()
}
