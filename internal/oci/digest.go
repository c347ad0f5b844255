package oci

import (
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// Sha256Hex returns the lowercase hex SHA-256 of everything read from r
func Sha256Hex(r io.Reader) (string, error) {
	d, err := digest.SHA256.FromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to generate SHA256 hash: %w", err)
	}
	return d.Encoded(), nil
}

// Sha256File returns the lowercase hex SHA-256 of a file's content
func Sha256File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return Sha256Hex(file)
}

// DescribeFile returns a descriptor (digest and size) for a file
func DescribeFile(mediaType, path string) (v1.Descriptor, error) {
	file, err := os.Open(path)
	if err != nil {
		return v1.Descriptor{}, err
	}
	defer file.Close()

	counter := &countingReader{r: file}
	d, err := digest.SHA256.FromReader(counter)
	if err != nil {
		return v1.Descriptor{}, fmt.Errorf("failed to digest %s: %w", path, err)
	}

	return v1.Descriptor{
		MediaType: mediaType,
		Digest:    d,
		Size:      counter.n,
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
