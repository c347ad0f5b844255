package validate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/oci"
	"github.com/metaformsystems/xregistry-oci/internal/registry"
)

var logValidate = logger.New("validate:validate")

// Severity of an Issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single finding about a registry file or directory
type Issue struct {
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// Report is the result of validating a registry
type Report struct {
	Root      string           `json:"root"`
	Artifacts []registry.Entry `json:"artifacts"`
	Issues    []Issue          `json:"issues"`
}

// HasErrors reports whether any issue is an error
func (r *Report) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of issues with the given severity
func (r *Report) Count(s Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == s {
			n++
		}
	}
	return n
}

func (r *Report) add(s Severity, path, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: s, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate walks a compact registry rooted at root and checks each
// artifact: documents must parse, schema artifacts must compile as JSON
// Schema, and an artifact may be defined only once. Files with registry
// extensions whose names are not in compact format are reported as warnings.
func Validate(root string) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot validate registry: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot validate registry: %s is not a directory", root)
	}

	c := registry.Collect(root)
	report := &Report{Root: root, Artifacts: c.Sorted()}

	for _, walkErr := range c.Errors {
		report.add(SeverityError, walkErr.Path, "cannot list directory: %v", walkErr.Err)
	}

	seen := make(map[artifactKey]string)
	for _, e := range report.Artifacts {
		key := artifactKey{e.Type, e.Artifact}
		if first, dup := seen[key]; dup {
			report.add(SeverityError, e.Path, "duplicate %s %s, also defined in %s", e.Type, e.Artifact, filepath.Base(first))
			continue
		}
		seen[key] = e.Path
		checkArtifact(report, e)
	}

	checkFileNames(report, root)

	logValidate.Printf("Validated %s: artifacts=%d, errors=%d, warnings=%d",
		root, len(report.Artifacts), report.Count(SeverityError), report.Count(SeverityWarning))
	return report, nil
}

type artifactKey struct {
	t registry.ArtifactType
	a registry.Artifact
}

func checkArtifact(report *Report, e registry.Entry) {
	if !oci.IsArtifactFile(e.Path) {
		report.add(SeverityWarning, e.Path, "extension is not packaged (expected .json, .yaml or .yml)")
		return
	}

	data, err := os.ReadFile(e.Path)
	if err != nil {
		report.add(SeverityError, e.Path, "cannot read: %v", err)
		return
	}

	name := filepath.Base(e.Path)
	if e.Type == registry.Schema {
		if _, err := CompileSchema(name, data); err != nil {
			report.add(SeverityError, e.Path, "%v", err)
		}
		return
	}
	if err := CheckDocument(name, data); err != nil {
		report.add(SeverityError, e.Path, "%v", err)
	}
}

// checkFileNames warns about registry documents the walker skipped
func checkFileNames(report *Report, root string) {
	for _, t := range registry.ArtifactTypes {
		dir := filepath.Join(root, t.ResourcesName())
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !oci.IsArtifactFile(entry.Name()) {
				continue
			}
			if _, ok := registry.ParseFilename(entry.Name()); !ok {
				report.add(SeverityWarning, filepath.Join(dir, entry.Name()),
					"file name does not follow group.name.version.extension and is ignored")
			}
		}
	}
}
