package push

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2/errdef"
)

func TestTagOf(t *testing.T) {
	assert.Equal(t, "1.0.0", TagOf("catalog-xregistry:1.0.0"))
	assert.Equal(t, "", TagOf("catalog-xregistry"))
	assert.Equal(t, "v2", TagOf("localhost:5000/catalog:v2"))
}

func TestParseTarget(t *testing.T) {
	ref, err := ParseTarget("localhost:5000/acme/policies", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "localhost:5000", ref.Registry)
	assert.Equal(t, "acme/policies", ref.Repository)
	assert.Equal(t, "1.0.0", ref.Reference)

	ref, err = ParseTarget("ghcr.io/acme/policies:stable", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "stable", ref.Reference)
}

func TestParseTarget_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		defaultTag string
		contains   string
	}{
		{"garbage", "not a reference", "1.0", "invalid target"},
		{"digest", "ghcr.io/acme/policies@sha256:b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", "1.0", "pinned by digest"},
		{"no tag anywhere", "ghcr.io/acme/policies", "", "has no tag"},
		{"version not a tag", "ghcr.io/acme/policies", "1.0+build/7", "cannot be used as a tag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTarget(tt.target, tt.defaultTag)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestPush_MissingReferenceInLayout(t *testing.T) {
	// An empty directory becomes an empty layout, so the reference is unknown
	_, err := Push(context.Background(), t.TempDir(), "catalog-xregistry:1.0.0", "localhost:5000/acme/policies", Options{PlainHTTP: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to push catalog-xregistry:1.0.0")
}

func TestPull_RequiresReference(t *testing.T) {
	_, err := Pull(context.Background(), "localhost:5000/acme/policies", filepath.Join(t.TempDir(), "layout"), "", Options{})
	assert.ErrorContains(t, err, "has no tag or digest")

	_, err = Pull(context.Background(), "::", filepath.Join(t.TempDir(), "layout"), "", Options{})
	assert.ErrorContains(t, err, "invalid reference")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", errdef.ErrNotFound)))
	assert.False(t, IsNotFound(errors.New("boom")))
}
