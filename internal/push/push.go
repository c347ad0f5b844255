// Package push copies packaged xRegistry artifacts between a local OCI image
// layout and a remote registry.
package push

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	orasoci "oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
)

var logPush = logger.New("push:push")

// Options control the connection to the registry
type Options struct {
	PlainHTTP   bool
	Username    string
	Password    string
	UserAgent   string
	Concurrency int
}

// Push copies the manifest tagged refName in the layout at layoutDir, with
// everything it references, to target. Target is "registry/repository" or
// "registry/repository:tag"; without a tag the version part of refName is
// used. The pushed manifest descriptor is returned.
func Push(ctx context.Context, layoutDir, refName, target string, opts Options) (v1.Descriptor, error) {
	src, err := orasoci.NewWithContext(ctx, layoutDir)
	if err != nil {
		return v1.Descriptor{}, fmt.Errorf("failed to open layout %s: %w", layoutDir, err)
	}

	ref, err := ParseTarget(target, TagOf(refName))
	if err != nil {
		return v1.Descriptor{}, err
	}
	repo, err := newRepository(ref, opts)
	if err != nil {
		return v1.Descriptor{}, err
	}

	logPush.Printf("Pushing %s from %s to %s", refName, layoutDir, ref)
	desc, err := oras.Copy(ctx, src, refName, repo, ref.Reference, copyOptions(opts))
	if err != nil {
		return v1.Descriptor{}, fmt.Errorf("failed to push %s to %s: %w", refName, ref, err)
	}

	logger.LogInfo("push", "Pushed %s as %s@%s", refName, ref, desc.Digest)
	return desc, nil
}

// Pull copies source ("registry/repository:tag" or "@digest") into the
// layout at layoutDir, tagging it there as refName. An empty refName
// becomes "<repository base name>:<tag>".
func Pull(ctx context.Context, source, layoutDir, refName string, opts Options) (v1.Descriptor, error) {
	ref, err := registry.ParseReference(source)
	if err != nil {
		return v1.Descriptor{}, fmt.Errorf("invalid reference %q: %w", source, err)
	}
	if ref.Reference == "" {
		return v1.Descriptor{}, fmt.Errorf("reference %q has no tag or digest", source)
	}
	if refName == "" {
		refName = path.Base(ref.Repository) + ":" + ref.Reference
	}

	repo, err := newRepository(ref, opts)
	if err != nil {
		return v1.Descriptor{}, err
	}
	dst, err := orasoci.NewWithContext(ctx, layoutDir)
	if err != nil {
		return v1.Descriptor{}, fmt.Errorf("failed to open layout %s: %w", layoutDir, err)
	}

	logPush.Printf("Pulling %s into %s as %s", ref, layoutDir, refName)
	desc, err := oras.Copy(ctx, repo, ref.Reference, dst, refName, copyOptions(opts))
	if err != nil {
		return v1.Descriptor{}, fmt.Errorf("failed to pull %s: %w", ref, err)
	}

	logger.LogInfo("pull", "Pulled %s@%s into %s", ref, desc.Digest, layoutDir)
	return desc, nil
}

// ParseTarget parses a push target, filling in defaultTag when the target
// carries no tag. Digest references cannot be pushed to.
func ParseTarget(target, defaultTag string) (registry.Reference, error) {
	ref, err := registry.ParseReference(target)
	if err != nil {
		return registry.Reference{}, fmt.Errorf("invalid target %q: %w", target, err)
	}
	if strings.Contains(target, "@") {
		return registry.Reference{}, fmt.Errorf("target %q must be tagged, not pinned by digest", target)
	}
	if ref.Reference == "" {
		if defaultTag == "" {
			return registry.Reference{}, fmt.Errorf("target %q has no tag", target)
		}
		ref.Reference = defaultTag
		if err := ref.ValidateReferenceAsTag(); err != nil {
			return registry.Reference{}, fmt.Errorf("version %q cannot be used as a tag: %w", defaultTag, err)
		}
	}
	return ref, nil
}

// TagOf returns the part of a reference name after the last colon
func TagOf(refName string) string {
	if i := strings.LastIndex(refName, ":"); i >= 0 {
		return refName[i+1:]
	}
	return ""
}

func newRepository(ref registry.Reference, opts Options) (*remote.Repository, error) {
	repo, err := remote.NewRepository(ref.Registry + "/" + ref.Repository)
	if err != nil {
		return nil, fmt.Errorf("invalid repository %s/%s: %w", ref.Registry, ref.Repository, err)
	}
	repo.PlainHTTP = opts.PlainHTTP

	client := &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
	}
	if opts.UserAgent != "" {
		client.SetUserAgent(opts.UserAgent)
	}
	if opts.Username != "" || opts.Password != "" {
		client.Credential = auth.StaticCredential(ref.Registry, auth.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}
	repo.Client = client
	return repo, nil
}

func copyOptions(opts Options) oras.CopyOptions {
	copts := oras.DefaultCopyOptions
	if opts.Concurrency > 0 {
		copts.Concurrency = opts.Concurrency
	}
	copts.OnCopySkipped = func(_ context.Context, desc v1.Descriptor) error {
		logPush.Printf("Blob exists, skipped: %s (%s)", desc.Digest, desc.MediaType)
		return nil
	}
	copts.PostCopy = func(_ context.Context, desc v1.Descriptor) error {
		logPush.Printf("Copied %s (%s, %d bytes)", desc.Digest, desc.MediaType, desc.Size)
		return nil
	}
	return copts
}

// IsNotFound reports whether err means a reference does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, errdef.ErrNotFound)
}
