package oci

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// WriteLayout writes an OCI image layout to dir: the oci-layout marker,
// index.json and one blob per entry of blobs (digest to source file).
// Existing files are overwritten.
func WriteLayout(dir string, index v1.Index, blobs map[digest.Digest]string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	marker := v1.ImageLayout{Version: v1.ImageLayoutVersion}
	if err := WriteJSON(filepath.Join(dir, v1.ImageLayoutFile), marker); err != nil {
		return err
	}
	if err := WriteJSON(filepath.Join(dir, v1.ImageIndexFile), index); err != nil {
		return err
	}

	for d, src := range blobs {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("invalid blob digest %q: %w", d, err)
		}
		if err := copyFile(src, BlobPath(dir, d)); err != nil {
			return fmt.Errorf("failed to write blob %s: %w", d, err)
		}
	}
	return nil
}

// BlobPath is the location of a blob inside a layout
func BlobPath(layoutDir string, d digest.Digest) string {
	return filepath.Join(layoutDir, "blobs", d.Algorithm().String(), d.Encoded())
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
