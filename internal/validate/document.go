// Package validate checks the content of an xRegistry before it is packaged.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// CheckDocument reports whether data parses as the format its name
// declares (JSON or YAML). Other names are not checked.
func CheckDocument(name string, data []byte) error {
	_, err := decodeDocument(name, data)
	return err
}

func decodeDocument(name string, data []byte) (interface{}, error) {
	var doc interface{}
	switch filepath.Ext(name) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", name, err)
		}
	}
	return doc, nil
}

// CompileSchema compiles a schema artifact, given as JSON or YAML, as a
// JSON Schema. Documents without $schema are compiled as draft 2020-12.
func CompileSchema(name string, data []byte) (*jsonschema.Schema, error) {
	doc, err := decodeDocument(name, data)
	if err != nil {
		return nil, err
	}

	// Remarshal so YAML schemas are accepted too
	schemaJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("schema %s cannot be represented as JSON: %w", name, err)
	}

	url := "file:///" + filepath.ToSlash(name)
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.LoadURL = func(s string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("remote reference %s is not resolved", s)
	}
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON Schema in %s: %w", name, err)
	}
	return schema, nil
}
