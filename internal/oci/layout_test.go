package oci

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLayout(t *testing.T) {
	work := t.TempDir()
	blobSrc := filepath.Join(work, "manifest.json")
	require.NoError(t, os.WriteFile(blobSrc, []byte(`{"schemaVersion":2}`), 0644))

	desc, err := DescribeFile(v1.MediaTypeImageManifest, blobSrc)
	require.NoError(t, err)

	layoutDir := filepath.Join(work, "oci-layout")
	index := NewIndex(desc, "demo:1.0")
	require.NoError(t, WriteLayout(layoutDir, index, map[digest.Digest]string{desc.Digest: blobSrc}))

	marker, err := os.ReadFile(filepath.Join(layoutDir, "oci-layout"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"imageLayoutVersion":"1.0.0"}`, string(marker))

	var got v1.Index
	data, err := os.ReadFile(filepath.Join(layoutDir, "index.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, desc.Digest, got.Manifests[0].Digest)

	blob := BlobPath(layoutDir, desc.Digest)
	assert.Equal(t, filepath.Join(layoutDir, "blobs", "sha256", desc.Digest.Encoded()), blob)
	hex, err := Sha256File(blob)
	require.NoError(t, err)
	assert.Equal(t, desc.Digest.Encoded(), hex)
}

func TestWriteLayout_OverwritesExisting(t *testing.T) {
	work := t.TempDir()
	src := filepath.Join(work, "blob")
	require.NoError(t, os.WriteFile(src, []byte("v2"), 0644))
	d := digest.FromString("v2")

	layoutDir := filepath.Join(work, "layout")
	require.NoError(t, os.MkdirAll(filepath.Join(layoutDir, "blobs", "sha256"), 0755))
	require.NoError(t, os.WriteFile(BlobPath(layoutDir, d), []byte("stale content"), 0644))

	require.NoError(t, WriteLayout(layoutDir, v1.Index{}, map[digest.Digest]string{d: src}))

	data, err := os.ReadFile(BlobPath(layoutDir, d))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestWriteLayout_RejectsInvalidDigest(t *testing.T) {
	err := WriteLayout(t.TempDir(), v1.Index{}, map[digest.Digest]string{"nope": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid blob digest")
}
