// Package oci builds the OCI artifacts of an xRegistry package: the layer
// tar, the image config, the manifest and the image layout.
package oci

import "path/filepath"

const (
	// TaskGroup groups all packaging tasks
	TaskGroup = "oci"

	// LayerMediaType is the default media type of the xRegistry layer
	LayerMediaType = "application/vnd.dspace.xregistry.layer.v1+json"
	// ConfigMediaType is the default media type of the image config
	ConfigMediaType = "application/vnd.oci.image.config.v1+json"

	// LayerPrefix is the directory all registry files live under inside the layer
	LayerPrefix = "xregistry"

	// ArtifactSuffix is appended to the project name for the default artifact name
	ArtifactSuffix = "-xregistry"

	// CreatedBy is recorded in the image config history
	CreatedBy = "xroci-xregistry-oci-packager"
	// HistoryComment is recorded in the image config history
	HistoryComment = "xRegistry policy layer"

	// ShaPrefix prefixes sha256 digests
	ShaPrefix = "sha256:"
)

// Build directory layout, relative to the build dir
var (
	SourceDir          = filepath.Join("src", "main", "xregistry")
	StagingDir         = "xregistry-staging"
	LayersDir          = "oci-layers"
	LayerArchive       = "xregistry-layer.tar"
	LayerArchivePath   = filepath.Join(LayersDir, LayerArchive)
	LayerShaPath       = filepath.Join(LayersDir, "xregistry-layer.sha256")
	ConfigPath         = filepath.Join("oci-config", "config.json")
	ManifestPath       = filepath.Join("oci-manifest", "manifest.json")
	LayoutDir          = "oci-layout"
	DistributionsDir   = "distributions"
	BlobsDir           = filepath.Join("blobs", "sha256")
	ArtifactExtensions = []string{".json", ".yaml", ".yml"}
)

// IsArtifactFile reports whether a file name matches one of the registry file
// patterns (**/*.json, **/*.yaml, **/*.yml)
func IsArtifactFile(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range ArtifactExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DistributionName is the file name of the packaged layout
func DistributionName(artifactName, version string) string {
	return artifactName + "-" + version + ".tar"
}
