package registry

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
)

var logWalker = logger.New("registry:walker")

// minTokens is group, resource name, version and extension
const minTokens = 4

// Visitor receives the artifacts found while walking a registry
type Visitor interface {
	// OnArtifact is called for every artifact file
	OnArtifact(t ArtifactType, artifact Artifact, path string)
	// OnError is called when a resources directory cannot be read
	OnError(path string, err error)
}

// Walker walks a registry root and reports to its visitor
type Walker interface {
	Walk(root string)
}

// CompactWalker walks a registry stored in compact format
type CompactWalker struct {
	visitor Visitor
}

// NewCompactWalker creates a walker reporting to visitor
func NewCompactWalker(visitor Visitor) *CompactWalker {
	return &CompactWalker{visitor: visitor}
}

// Walk visits every resource type in order. Missing resources directories
// are skipped; unreadable ones are reported and the walk continues.
func (w *CompactWalker) Walk(root string) {
	logWalker.Printf("Walking compact registry: root=%s", root)
	for _, t := range ArtifactTypes {
		w.processPath(t, root)
	}
}

func (w *CompactWalker) processPath(t ArtifactType, root string) {
	resourcePath := filepath.Join(root, t.ResourcesName())
	if _, err := os.Stat(resourcePath); os.IsNotExist(err) {
		logWalker.Printf("No %s directory, skipping", t.ResourcesName())
		return
	}

	entries, err := os.ReadDir(resourcePath)
	if err != nil {
		logWalker.Printf("Failed to list %s: %v", resourcePath, err)
		w.visitor.OnError(resourcePath, err)
		return
	}

	for _, entry := range entries {
		if !IsRegularFile(filepath.Join(resourcePath, entry.Name()), entry) {
			continue
		}
		artifact, ok := ParseFilename(entry.Name())
		if !ok {
			logWalker.Printf("Ignoring file with non-compact name: %s", entry.Name())
			continue
		}
		w.visitor.OnArtifact(t, artifact, filepath.Join(resourcePath, entry.Name()))
	}
}

// IsRegularFile reports whether the entry at path is a regular file,
// following symlinks like a stat would
func IsRegularFile(path string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ParseFilename parses "group.resource-name.version.extension". Everything
// between the resource name and the extension is the version, so versions may
// contain dots. It reports false for names that do not follow the format.
func ParseFilename(filename string) (Artifact, bool) {
	if filename == "" {
		return Artifact{}, false
	}

	tokens := strings.Split(filename, ".")
	// "a.b.1.json." names the same artifact as "a.b.1.json"
	for len(tokens) > 0 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) < minTokens {
		return Artifact{}, false
	}

	version := strings.Join(tokens[2:len(tokens)-1], ".")
	artifact, err := NewArtifact(tokens[0], tokens[1], version)
	if err != nil {
		return Artifact{}, false
	}
	return artifact, true
}

// Entry is an artifact found by a walk
type Entry struct {
	Type     ArtifactType `json:"type"`
	Artifact Artifact     `json:"artifact"`
	Path     string       `json:"path"`
}

// WalkError is a resources directory that could not be read
type WalkError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (e WalkError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// Collector is a Visitor that keeps everything it is told about
type Collector struct {
	Entries []Entry
	Errors  []WalkError
}

// OnArtifact implements Visitor
func (c *Collector) OnArtifact(t ArtifactType, artifact Artifact, path string) {
	c.Entries = append(c.Entries, Entry{Type: t, Artifact: artifact, Path: path})
}

// OnError implements Visitor
func (c *Collector) OnError(path string, err error) {
	c.Errors = append(c.Errors, WalkError{Path: path, Err: err})
}

// Collect walks root in compact format and returns the populated collector
func Collect(root string) *Collector {
	c := &Collector{}
	NewCompactWalker(c).Walk(root)
	return c
}

// Sorted returns entries ordered by type, group, name and version
func (c *Collector) Sorted() []Entry {
	sorted := make([]Entry, len(c.Entries))
	copy(sorted, c.Entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Artifact.Group != b.Artifact.Group {
			return a.Artifact.Group < b.Artifact.Group
		}
		if a.Artifact.Name != b.Artifact.Name {
			return a.Artifact.Name < b.Artifact.Name
		}
		return CompareVersions(a.Artifact.Version, b.Artifact.Version) < 0
	})
	return sorted
}

// Latest returns the entry with the highest version for type, group and name
func (c *Collector) Latest(t ArtifactType, group, name string) (Entry, bool) {
	var latest Entry
	found := false
	for _, e := range c.Entries {
		if e.Type != t || e.Artifact.Group != group || e.Artifact.Name != name {
			continue
		}
		if !found || CompareVersions(e.Artifact.Version, latest.Artifact.Version) > 0 {
			latest = e
			found = true
		}
	}
	return latest, found
}
