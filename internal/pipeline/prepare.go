package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/oci"
	"github.com/metaformsystems/xregistry-oci/internal/registry"
	"github.com/metaformsystems/xregistry-oci/internal/validate"
)

// prepareFiles copies the registry documents into the staging directory,
// checking that each one parses
func prepareFiles(ctx context.Context, b *Build) error {
	sourceDir, err := b.Project.SourceDir()
	if err != nil {
		return err
	}
	b.State.SourceDir = sourceDir

	files, err := findArtifactFiles(sourceDir, b.Project.BuildDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("No xRegistry files found in directory: %s", sourceDir)
	}

	staging := b.Project.BuildPath(oci.StagingDir)
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("failed to clean staging directory: %w", err)
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return stageFile(filepath.Join(sourceDir, rel), filepath.Join(staging, rel), rel)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	b.State.Files = len(files)
	logStagedArtifacts(staging, len(files))
	return nil
}

// findArtifactFiles returns the paths of all registry documents below dir,
// relative to it and sorted. buildDir is skipped when the registry contains
// it, so a build never packages its own output.
func findArtifactFiles(dir, buildDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && filepath.Clean(path) == filepath.Clean(buildDir) {
				logPipeline.Printf("Skipping build directory %s", path)
				return filepath.SkipDir
			}
			return nil
		}
		if !oci.IsArtifactFile(d.Name()) || !registry.IsRegularFile(path, d) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func stageFile(src, dst, rel string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := validate.CheckDocument(rel, data); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func logStagedArtifacts(staging string, files int) {
	c := registry.Collect(staging)
	counts := make(map[registry.ArtifactType]int)
	for _, e := range c.Entries {
		counts[e.Type]++
	}
	logger.LogInfo("prepare", "Staged %d files: %d policies, %d schemas, %d rules",
		files, counts[registry.Policy], counts[registry.Schema], counts[registry.Rule])
}
