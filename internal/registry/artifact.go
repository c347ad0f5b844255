// Package registry reads file-system based xRegistries.
//
// A registry root contains one directory per resource type:
//
//	<root>/policies
//	<root>/schemas
//	<root>/rules
//
// In compact format every file directly inside those directories is named
// "group.resource-name.version.extension", e.g. "acme.access.1.2.0.json".
package registry

import (
	"errors"
	"fmt"
)

// ArtifactType identifies the kind of resource an artifact describes
type ArtifactType int

const (
	Policy ArtifactType = iota
	Schema
	Rule
)

// ArtifactTypes lists all types in walk order
var ArtifactTypes = []ArtifactType{Policy, Schema, Rule}

// String returns the upper-case type name
func (t ArtifactType) String() string {
	switch t {
	case Policy:
		return "POLICY"
	case Schema:
		return "SCHEMA"
	case Rule:
		return "RULE"
	default:
		return fmt.Sprintf("ArtifactType(%d)", int(t))
	}
}

// ResourcesName is the directory holding artifacts of this type
func (t ArtifactType) ResourcesName() string {
	switch t {
	case Policy:
		return "policies"
	case Schema:
		return "schemas"
	case Rule:
		return "rules"
	default:
		return ""
	}
}

// MarshalText encodes the type by name
func (t ArtifactType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseArtifactType accepts a type name ("POLICY") or a resources directory name ("policies")
func ParseArtifactType(s string) (ArtifactType, error) {
	for _, t := range ArtifactTypes {
		if s == t.String() || s == t.ResourcesName() {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown artifact type %q", s)
}

// Artifact identifies one versioned registry resource. It is comparable and
// can be used as a map key; two artifacts are equal when group, name and
// version all match.
type Artifact struct {
	Group   string `json:"group"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// NewArtifact returns an artifact after checking that no field is empty
func NewArtifact(group, name, version string) (Artifact, error) {
	switch {
	case group == "":
		return Artifact{}, errors.New("group cannot be empty")
	case name == "":
		return Artifact{}, errors.New("name cannot be empty")
	case version == "":
		return Artifact{}, errors.New("version cannot be empty")
	}
	return Artifact{Group: group, Name: name, Version: version}, nil
}

func (a Artifact) String() string {
	return a.Group + "." + a.Name + "@" + a.Version
}
