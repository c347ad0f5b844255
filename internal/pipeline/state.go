package pipeline

import (
	"github.com/opencontainers/go-digest"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// State carries the values one task produces for the tasks after it
type State struct {
	SourceDir string
	Files     int

	Layer    v1.Descriptor
	Config   v1.Descriptor
	Manifest v1.Descriptor

	Distribution string
}

// Output returns the digest and size a task produced, if any
func (s *State) Output(taskName string) (digest.Digest, int64) {
	var desc v1.Descriptor
	switch taskName {
	case GenerateLayerDigest:
		desc = s.Layer
	case CreateOciConfig:
		desc = s.Config
	case CreateOciManifest, CreateOciLayout, PackageOciArtifact, BuildXRegistryOci:
		desc = s.Manifest
	}
	return desc.Digest, desc.Size
}
