package oci

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
)

var logArchive = logger.New("oci:archive")

// ArchiveTime is the modification time written for every tar entry, so that
// identical inputs produce identical archives and digests.
var ArchiveTime = time.Unix(0, 0).UTC()

// TarDir writes an uncompressed tar of src to w. Entries are written in
// lexical order below prefix ("" for the archive root) with fixed ownership,
// permissions and modification time.
func TarDir(src, prefix string, w io.Writer) error {
	tw := tar.NewWriter(w)

	if prefix != "" {
		if err := writeDirHeader(tw, prefix+"/"); err != nil {
			return err
		}
	}

	count := 0
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := path.Join(prefix, filepath.ToSlash(rel))

		if d.IsDir() {
			return writeDirHeader(tw, name+"/")
		}
		if !d.Type().IsRegular() {
			logArchive.Printf("Skipping non-regular file: %s", p)
			return nil
		}
		count++
		return writeFileEntry(tw, p, name)
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", src, err)
	}

	logArchive.Printf("Archived %d files from %s", count, src)
	return tw.Close()
}

func writeDirHeader(tw *tar.Writer, name string) error {
	return tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeDir,
		Name:     name,
		Mode:     0755,
		ModTime:  ArchiveTime,
	})
}

func writeFileEntry(tw *tar.Writer, src, name string) error {
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	if err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     0644,
		Size:     info.Size(),
		ModTime:  ArchiveTime,
	}); err != nil {
		return err
	}
	_, err = io.Copy(tw, file)
	return err
}

// GzipTarDir writes a gzip compressed tar of src to w
func GzipTarDir(src string, w io.Writer) error {
	gz := gzip.NewWriter(w)
	gz.ModTime = ArchiveTime
	if err := TarDir(src, "", gz); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// TarDirToFile archives src into dst, creating parent directories
func TarDirToFile(src, prefix, dst string, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if compress {
		err = GzipTarDir(src, out)
	} else {
		err = TarDir(src, prefix, out)
	}
	if err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
