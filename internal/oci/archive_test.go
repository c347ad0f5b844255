package oci

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stagingTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"policies/acme.access.1.json": `{"allow":true}`,
		"schemas/acme.order.1.yaml":   "type: object\n",
		"manifest.json":               `{}`,
	} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func readTar(t *testing.T, r io.Reader) map[string]*tar.Header {
	t.Helper()
	headers := map[string]*tar.Header{}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		headers[hdr.Name] = hdr
	}
	return headers
}

func TestTarDir_PrefixAndEntries(t *testing.T) {
	src := stagingTree(t)
	var buf bytes.Buffer

	require.NoError(t, TarDir(src, LayerPrefix, &buf))

	headers := readTar(t, &buf)
	assert.Contains(t, headers, "xregistry/")
	assert.Contains(t, headers, "xregistry/policies/")
	assert.Contains(t, headers, "xregistry/policies/acme.access.1.json")
	assert.Contains(t, headers, "xregistry/schemas/acme.order.1.yaml")
	assert.Contains(t, headers, "xregistry/manifest.json")

	file := headers["xregistry/policies/acme.access.1.json"]
	assert.EqualValues(t, len(`{"allow":true}`), file.Size)
	assert.True(t, file.ModTime.Equal(ArchiveTime))
	assert.EqualValues(t, 0644, file.Mode)
}

func TestTarDir_Deterministic(t *testing.T) {
	src := stagingTree(t)

	var first, second bytes.Buffer
	require.NoError(t, TarDir(src, LayerPrefix, &first))

	// Touch a file; content is unchanged so the archive must be too
	path := filepath.Join(src, "manifest.json")
	require.NoError(t, os.Chtimes(path, ArchiveTime.AddDate(1, 0, 0), ArchiveTime.AddDate(1, 0, 0)))
	require.NoError(t, TarDir(src, LayerPrefix, &second))

	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestGzipTarDir(t *testing.T) {
	src := stagingTree(t)
	dst := filepath.Join(t.TempDir(), "distributions", DistributionName("demo-xregistry", "1.0"))

	require.NoError(t, TarDirToFile(src, "", dst, true))

	file, err := os.Open(dst)
	require.NoError(t, err)
	defer file.Close()
	gz, err := gzip.NewReader(file)
	require.NoError(t, err)

	headers := readTar(t, gz)
	assert.Contains(t, headers, "policies/acme.access.1.json")
	assert.NotContains(t, headers, "xregistry/")
	assert.Equal(t, "demo-xregistry-1.0.tar", filepath.Base(dst))
}

func TestIsArtifactFile(t *testing.T) {
	assert.True(t, IsArtifactFile("a.b.1.json"))
	assert.True(t, IsArtifactFile("a.b.1.yaml"))
	assert.True(t, IsArtifactFile("a.b.1.yml"))
	assert.False(t, IsArtifactFile("README.md"))
	assert.False(t, IsArtifactFile("json"))
}
