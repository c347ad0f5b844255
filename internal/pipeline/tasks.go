package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/opencontainers/go-digest"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/oci"
)

// Task names
const (
	PrepareXRegistryFiles = "prepareXRegistryFiles"
	CreateXRegistryLayer  = "createXRegistryLayer"
	GenerateLayerDigest   = "generateLayerDigest"
	CreateOciConfig       = "createOciConfig"
	CreateOciManifest     = "createOciManifest"
	CreateOciLayout       = "createOciLayout"
	PackageOciArtifact    = "packageOciArtifact"
	BuildXRegistryOci     = "buildXRegistryOci"
)

var logTasks = logger.New("pipeline:tasks")

func packagingTasks() []*Task {
	tasks := []*Task{
		{
			Name:        PrepareXRegistryFiles,
			Description: "Copies xRegistry files to a staging directory",
			Action:      prepareFiles,
		},
		{
			Name:        CreateXRegistryLayer,
			Description: "Creates xRegistry layer tar archive",
			DependsOn:   []string{PrepareXRegistryFiles},
			Action:      createLayer,
		},
		{
			Name:        GenerateLayerDigest,
			Description: "Generates SHA-256 digest for xRegistry layer",
			DependsOn:   []string{CreateXRegistryLayer},
			Action:      generateLayerDigest,
		},
		{
			Name:        CreateOciConfig,
			Description: "Creates OCI image config",
			DependsOn:   []string{GenerateLayerDigest},
			Action:      createConfig,
		},
		{
			Name:        CreateOciManifest,
			Description: "Creates OCI image manifest",
			DependsOn:   []string{CreateOciConfig},
			Action:      createManifest,
		},
		{
			Name:        CreateOciLayout,
			Description: "Creates OCI image layout",
			DependsOn:   []string{CreateOciManifest},
			Action:      createLayout,
		},
		{
			Name:        PackageOciArtifact,
			Description: "Packages OCI layout as tar archive for distribution",
			DependsOn:   []string{CreateOciLayout},
			Action:      packageArtifact,
		},
		{
			Name:        BuildXRegistryOci,
			Description: "Builds an xRegistry as an OCI distribution artifact",
			DependsOn:   []string{PackageOciArtifact},
		},
	}
	for _, t := range tasks {
		t.Group = oci.TaskGroup
	}
	return tasks
}

func createLayer(_ context.Context, b *Build) error {
	staging := b.Project.BuildPath(oci.StagingDir)
	archive := b.Project.BuildPath(oci.LayerArchivePath)
	logTasks.Printf("Creating layer: staging=%s, archive=%s", staging, archive)

	return oci.TarDirToFile(staging, oci.LayerPrefix, archive, false)
}

func generateLayerDigest(_ context.Context, b *Build) error {
	archive := b.Project.BuildPath(oci.LayerArchivePath)
	if _, err := os.Stat(archive); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("Layer archive not found: %s", archive)
		}
		return err
	}

	desc, err := oci.DescribeFile(b.Project.MediaType, archive)
	if err != nil {
		return err
	}
	if err := os.WriteFile(b.Project.BuildPath(oci.LayerShaPath), []byte(desc.Digest.Encoded()), 0644); err != nil {
		return fmt.Errorf("failed to write layer digest: %w", err)
	}

	b.State.Layer = desc
	logTasks.Printf("Layer digest: %s, size=%d", desc.Digest, desc.Size)
	return nil
}

func createConfig(_ context.Context, b *Build) error {
	created, err := oci.CreatedTime()
	if err != nil {
		return err
	}

	path := b.Project.BuildPath(oci.ConfigPath)
	if err := oci.WriteJSON(path, oci.NewImageConfig(b.State.Layer.Digest, created)); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	desc, err := oci.DescribeFile(b.Project.ConfigMediaType, path)
	if err != nil {
		return err
	}
	b.State.Config = desc
	logTasks.Printf("Config digest: %s, size=%d", desc.Digest, desc.Size)
	return nil
}

func createManifest(_ context.Context, b *Build) error {
	p := b.Project
	manifest := oci.NewManifest(b.State.Config, b.State.Layer, p.ArtifactName, p.ArtifactVersion)

	path := p.BuildPath(oci.ManifestPath)
	if err := oci.WriteJSON(path, manifest); err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}

	desc, err := oci.DescribeFile(v1.MediaTypeImageManifest, path)
	if err != nil {
		return err
	}
	b.State.Manifest = desc
	logTasks.Printf("Manifest digest: %s, size=%d", desc.Digest, desc.Size)
	return nil
}

func createLayout(_ context.Context, b *Build) error {
	p := b.Project
	layoutDir := p.BuildPath(oci.LayoutDir)

	// Blobs of earlier builds would otherwise be packaged too
	if err := os.RemoveAll(layoutDir); err != nil {
		return fmt.Errorf("failed to clean layout directory: %w", err)
	}

	blobs := map[digest.Digest]string{
		b.State.Layer.Digest:    p.BuildPath(oci.LayerArchivePath),
		b.State.Config.Digest:   p.BuildPath(oci.ConfigPath),
		b.State.Manifest.Digest: p.BuildPath(oci.ManifestPath),
	}
	index := oci.NewIndex(b.State.Manifest, p.RefName())
	if err := oci.WriteLayout(layoutDir, index, blobs); err != nil {
		return fmt.Errorf("failed to create layout: %w", err)
	}

	logTasks.Printf("Layout written: dir=%s, ref=%s", layoutDir, p.RefName())
	return nil
}

func packageArtifact(_ context.Context, b *Build) error {
	dst := b.Project.DistributionPath()
	if err := oci.TarDirToFile(b.Project.BuildPath(oci.LayoutDir), "", dst, true); err != nil {
		return err
	}
	b.State.Distribution = dst
	logger.LogInfo("package", "Packaged %s as %s", b.Project.RefName(), dst)
	return nil
}
