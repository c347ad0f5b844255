package oci

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// NewImageConfig creates the image config for a single xRegistry layer
func NewImageConfig(layerDigest digest.Digest, created time.Time) v1.Image {
	return v1.Image{
		Platform: v1.Platform{
			Architecture: "amd64",
			OS:           "linux",
		},
		Config: v1.ImageConfig{},
		RootFS: v1.RootFS{
			Type:    "layers",
			DiffIDs: []digest.Digest{layerDigest},
		},
		History: []v1.History{
			{
				Created:   &created,
				CreatedBy: CreatedBy,
				Comment:   HistoryComment,
			},
		},
	}
}

// NewManifest creates an image manifest with one layer, annotated with the
// artifact title and version
func NewManifest(config, layer v1.Descriptor, title, version string) v1.Manifest {
	return v1.Manifest{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: v1.MediaTypeImageManifest,
		Config:    config,
		Layers:    []v1.Descriptor{layer},
		Annotations: map[string]string{
			v1.AnnotationTitle:   title,
			v1.AnnotationVersion: version,
		},
	}
}

// RefName is the reference name recorded in the image index
func RefName(artifactName, version string) string {
	return artifactName + ":" + version
}

// NewIndex creates an image index pointing at a single manifest
func NewIndex(manifest v1.Descriptor, refName string) v1.Index {
	manifest.Annotations = map[string]string{
		v1.AnnotationRefName: refName,
	}
	return v1.Index{
		Versioned: specs.Versioned{SchemaVersion: 2},
		Manifests: []v1.Descriptor{manifest},
	}
}

// WriteJSON writes v as compact JSON, creating parent directories
func WriteJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CreatedTime returns the build timestamp: SOURCE_DATE_EPOCH when set,
// otherwise now, in UTC
func CreatedTime() (time.Time, error) {
	if epoch := os.Getenv("SOURCE_DATE_EPOCH"); epoch != "" {
		secs, err := strconv.ParseInt(epoch, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid SOURCE_DATE_EPOCH %q: %w", epoch, err)
		}
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Now().UTC(), nil
}
