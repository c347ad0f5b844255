package inspect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaformsystems/xregistry-oci/internal/config"
	"github.com/metaformsystems/xregistry-oci/internal/oci"
	"github.com/metaformsystems/xregistry-oci/internal/pipeline"
)

// buildLayout packages a one-policy registry and returns the layout dir
func buildLayout(t *testing.T) string {
	t.Helper()
	t.Setenv("SOURCE_DATE_EPOCH", "1700000000")

	dir := t.TempDir()
	src := filepath.Join(dir, "src", "main", "xregistry", "policies")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "acme.access.1.json"), []byte(`{"allow":true}`), 0644))

	cfg := &config.Config{Package: config.PackageConfig{Name: "catalog", Version: "0.3.0"}}
	project, err := pipeline.NewProject(dir, cfg, pipeline.Overrides{})
	require.NoError(t, err)
	_, err = pipeline.New(project).Run(context.Background(), pipeline.CreateOciLayout)
	require.NoError(t, err)

	return project.BuildPath(oci.LayoutDir)
}

func TestLoad(t *testing.T) {
	dir := buildLayout(t)

	l, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "catalog-xregistry:0.3.0", l.RefName())
	assert.Equal(t, "amd64", l.Config.Architecture)
	require.Len(t, l.LayerDigests(), 1)
	assert.Equal(t, l.Config.RootFS.DiffIDs[0], l.LayerDigests()[0])

	entries, err := l.LayerEntries()
	require.NoError(t, err)
	assert.Equal(t, []string{"xregistry/policies/acme.access.1.json"}, entries)
}

func TestLoad_DetectsTamperedConfig(t *testing.T) {
	dir := buildLayout(t)
	l, err := Load(dir)
	require.NoError(t, err)

	path := oci.BlobPath(dir, l.Manifest.Config.Digest)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-2] = ' '
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match its digest")
}

func TestLoad_DetectsTruncatedLayer(t *testing.T) {
	dir := buildLayout(t)
	l, err := Load(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(oci.BlobPath(dir, l.LayerDigests()[0]), []byte("short"), 0644))

	_, err = Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has size 5")
}

func TestLoad_NotALayout(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an OCI image layout")
}

func TestQuery(t *testing.T) {
	l, err := Load(buildLayout(t))
	require.NoError(t, err)
	doc, err := l.Document()
	require.NoError(t, err)

	results, err := Query(doc, `.manifest.annotations["org.opencontainers.image.version"]`)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"0.3.0"}, results)

	results, err = Query(doc, `.manifest.layers[].mediaType`)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{oci.LayerMediaType}, results)

	results, err = Query(doc, `.config.history[0].comment, .config.os`)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"xRegistry policy layer", "linux"}, results)

	_, err = Query(doc, `.manifest |||`)
	assert.ErrorContains(t, err, "invalid query")

	_, err = Query(doc, `.config.os | error("stop")`)
	assert.ErrorContains(t, err, "query failed")
}
