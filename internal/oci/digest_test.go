package oci

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSha256Hex(t *testing.T) {
	empty, err := Sha256Hex(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", empty)

	hello, err := Sha256Hex(strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", hello)
}

func TestSha256File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layer.tar")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	got, err := Sha256File(path)
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)

	_, err = Sha256File(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestDescribeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	desc, err := DescribeFile(ConfigMediaType, path)
	require.NoError(t, err)
	assert.Equal(t, ConfigMediaType, desc.MediaType)
	assert.Equal(t, "sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", desc.Digest.String())
	assert.EqualValues(t, 11, desc.Size)
}
