package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/metaformsystems/xregistry-oci/internal/config"
	"github.com/metaformsystems/xregistry-oci/internal/oci"
)

// UnspecifiedVersion is the version of a project that does not declare one
const UnspecifiedVersion = "unspecified"

// Overrides are settings given on the command line. Non-empty values win over
// the configuration file.
type Overrides struct {
	SourceDir       string
	ArtifactName    string
	ArtifactVersion string
	BuildDir        string
}

// Project is a directory holding xRegistry sources together with the settings
// used to package them
type Project struct {
	Dir      string
	Name     string
	Version  string
	BuildDir string

	ArtifactName    string
	ArtifactVersion string
	MediaType       string
	ConfigMediaType string

	sourceDir string
}

// NewProject resolves the project settings from flags, the configuration
// and the defaults, in that order
func NewProject(dir string, cfg *config.Config, flags Overrides) (*Project, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	pkg := cfg.Package
	p := &Project{
		Dir:             absDir,
		Name:            firstNonEmpty(pkg.Name, filepath.Base(absDir)),
		Version:         firstNonEmpty(pkg.Version, UnspecifiedVersion),
		MediaType:       firstNonEmpty(pkg.MediaType, oci.LayerMediaType),
		ConfigMediaType: firstNonEmpty(pkg.ConfigMediaType, oci.ConfigMediaType),
		sourceDir:       firstNonEmpty(flags.SourceDir, pkg.SourceDir, oci.SourceDir),
	}
	p.BuildDir = p.resolve(firstNonEmpty(flags.BuildDir, pkg.BuildDir, "build"))
	p.ArtifactName = firstNonEmpty(flags.ArtifactName, pkg.ArtifactName, p.Name+oci.ArtifactSuffix)
	p.ArtifactVersion = firstNonEmpty(flags.ArtifactVersion, pkg.ArtifactVersion, p.Version)

	logPipeline.Printf("Resolved project: name=%s, version=%s, artifact=%s:%s, buildDir=%s",
		p.Name, p.Version, p.ArtifactName, p.ArtifactVersion, p.BuildDir)
	return p, nil
}

// SourceDir returns the absolute xRegistry source directory. It is checked
// each time it is asked for, so a directory created after the project was
// resolved is picked up.
func (p *Project) SourceDir() (string, error) {
	sourceDir := p.resolve(p.sourceDir)

	info, err := os.Stat(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("XRegistry source directory does not exist: %s. "+
				"Please create the directory or specify a valid source directory using the 'xRegistrySourceDir' property.", sourceDir)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("XRegistry source path is not a directory: %s. "+
			"Please ensure the path points to a valid directory.", sourceDir)
	}
	return sourceDir, nil
}

// RefName is the reference the artifact is tagged with in the image layout
func (p *Project) RefName() string {
	return oci.RefName(p.ArtifactName, p.ArtifactVersion)
}

// BuildPath joins elements onto the build directory
func (p *Project) BuildPath(elem ...string) string {
	return filepath.Join(append([]string{p.BuildDir}, elem...)...)
}

// DistributionPath is the location of the packaged layout
func (p *Project) DistributionPath() string {
	return p.BuildPath(oci.DistributionsDir, oci.DistributionName(p.ArtifactName, p.ArtifactVersion))
}

func (p *Project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.Dir, path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
