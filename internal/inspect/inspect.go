// Package inspect reads an OCI image layout produced by a build and answers
// jq queries about it.
package inspect

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/itchyny/gojq"
	"github.com/opencontainers/go-digest"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/oci"
)

var logInspect = logger.New("inspect:layout")

// Layout is an OCI image layout with the documents of its first manifest
type Layout struct {
	Dir      string
	Marker   v1.ImageLayout
	Index    v1.Index
	Manifest v1.Manifest
	Config   v1.Image
}

// Load reads the layout in dir. The manifest and config blobs are checked
// against the digests and sizes that reference them; the layer blob must
// exist with the recorded size and digest.
func Load(dir string) (*Layout, error) {
	l := &Layout{Dir: dir}

	if err := readJSON(filepath.Join(dir, v1.ImageLayoutFile), &l.Marker); err != nil {
		return nil, fmt.Errorf("not an OCI image layout: %w", err)
	}
	if l.Marker.Version != v1.ImageLayoutVersion {
		return nil, fmt.Errorf("unsupported image layout version %q", l.Marker.Version)
	}
	if err := readJSON(filepath.Join(dir, v1.ImageIndexFile), &l.Index); err != nil {
		return nil, err
	}
	if len(l.Index.Manifests) == 0 {
		return nil, fmt.Errorf("index.json in %s lists no manifests", dir)
	}

	manifestData, err := l.readBlob(l.Index.Manifests[0])
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(manifestData, &l.Manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	configData, err := l.readBlob(l.Manifest.Config)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(configData, &l.Config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	for _, layer := range l.Manifest.Layers {
		if err := l.verifyBlobFile(layer); err != nil {
			return nil, err
		}
	}

	logInspect.Printf("Loaded layout %s: manifest=%s, layers=%d", dir, l.Index.Manifests[0].Digest, len(l.Manifest.Layers))
	return l, nil
}

// RefName returns the reference name annotated on the first manifest
func (l *Layout) RefName() string {
	return l.Index.Manifests[0].Annotations[v1.AnnotationRefName]
}

func (l *Layout) readBlob(desc v1.Descriptor) ([]byte, error) {
	if err := desc.Digest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid digest %q: %w", desc.Digest, err)
	}
	data, err := os.ReadFile(oci.BlobPath(l.Dir, desc.Digest))
	if err != nil {
		return nil, fmt.Errorf("missing blob %s: %w", desc.Digest, err)
	}
	if int64(len(data)) != desc.Size {
		return nil, fmt.Errorf("blob %s has size %d, expected %d", desc.Digest, len(data), desc.Size)
	}
	if actual := desc.Digest.Algorithm().FromBytes(data); actual != desc.Digest {
		return nil, fmt.Errorf("blob %s does not match its digest (got %s)", desc.Digest, actual)
	}
	return data, nil
}

func (l *Layout) verifyBlobFile(desc v1.Descriptor) error {
	if err := desc.Digest.Validate(); err != nil {
		return fmt.Errorf("invalid digest %q: %w", desc.Digest, err)
	}
	path := oci.BlobPath(l.Dir, desc.Digest)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("missing blob %s: %w", desc.Digest, err)
	}
	defer file.Close()

	verifier := desc.Digest.Verifier()
	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Size() != desc.Size {
		return fmt.Errorf("blob %s has size %d, expected %d", desc.Digest, info.Size(), desc.Size)
	}
	if _, err := io.Copy(verifier, file); err != nil {
		return err
	}
	if !verifier.Verified() {
		return fmt.Errorf("blob %s does not match its digest", desc.Digest)
	}
	return nil
}

// Document returns the index, manifest and config as one generic JSON value
func (l *Layout) Document() (interface{}, error) {
	data, err := json.Marshal(map[string]interface{}{
		"index":    l.Index,
		"manifest": l.Manifest,
		"config":   l.Config,
	})
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Query runs a jq expression over doc and returns every result
func Query(doc interface{}, expr string) ([]interface{}, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}

	var results []interface{}
	iter := query.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

// LayerDigests returns the digests of all layers
func (l *Layout) LayerDigests() []digest.Digest {
	digests := make([]digest.Digest, len(l.Manifest.Layers))
	for i, layer := range l.Manifest.Layers {
		digests[i] = layer.Digest
	}
	return digests
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LayerEntries lists the file names inside every layer, in archive order
func (l *Layout) LayerEntries() ([]string, error) {
	var names []string
	for _, layer := range l.Manifest.Layers {
		file, err := os.Open(oci.BlobPath(l.Dir, layer.Digest))
		if err != nil {
			return nil, err
		}
		tr := tar.NewReader(file)
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				file.Close()
				return nil, fmt.Errorf("failed to read layer %s: %w", layer.Digest, err)
			}
			if hdr.Typeflag == tar.TypeReg {
				names = append(names, hdr.Name)
			}
		}
		file.Close()
	}
	return names, nil
}
