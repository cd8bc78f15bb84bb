package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Result describes a written archive.
type Result struct {
	Path  string
	Size  int64
	Files int
	// Skipped lists files that could not be opened when the archive was built.
	Skipped []string
}

// Build writes a gzip-compressed tar of files to dest. Entries are stored
// under their absolute path without the leading separator.
//
// A file that cannot be opened (removed or made unreadable since the scan) is
// skipped, logged and reported in Result.Skipped. Any other failure aborts the
// build and leaves no file at dest.
func Build(dest string, files []string, log *slog.Logger) (*Result, error) {
	return write(dest, files, log, true, func(p string) string {
		return strings.TrimPrefix(filepath.ToSlash(p), "/")
	})
}

// Bundle writes an uncompressed tar of files to dest, naming entries relative to baseDir.
// Unlike Build every file must be readable.
func Bundle(dest, baseDir string, files []string, log *slog.Logger) (*Result, error) {
	var relErr error
	res, err := write(dest, files, log, false, func(p string) string {
		rel, err := filepath.Rel(baseDir, p)
		if err != nil && relErr == nil {
			relErr = err
		}
		return filepath.ToSlash(rel)
	})
	if relErr != nil {
		return nil, fmt.Errorf("bundle entry name: %w", relErr)
	}
	return res, err
}

func write(dest string, files []string, log *slog.Logger, compress bool, name func(string) string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(dest), err)
	}

	partial := dest + ".partial"
	out, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", partial, err)
	}
	ok := false
	defer func() {
		if !ok {
			out.Close()
			os.Remove(partial)
		}
	}()

	var tw *tar.Writer
	var gw *gzip.Writer
	if compress {
		tw, gw = NewWriter(out)
	} else {
		tw = tar.NewWriter(out)
	}

	res := &Result{Path: dest}
	for _, f := range files {
		err := AddFile(tw, f, name(f))
		if err == nil {
			res.Files++
			continue
		}
		var oe *openError
		if compress && errors.As(err, &oe) {
			log.Warn("skipping file that vanished or became unreadable", "path", f, "error", oe.err)
			res.Skipped = append(res.Skipped, f)
			continue
		}
		return nil, fmt.Errorf("adding %s: %w", f, err)
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar: %w", err)
	}
	if gw != nil {
		if err := gw.Close(); err != nil {
			return nil, fmt.Errorf("closing gzip: %w", err)
		}
	}
	if err := out.Sync(); err != nil {
		return nil, fmt.Errorf("syncing %s: %w", partial, err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", partial, err)
	}
	if err := os.Rename(partial, dest); err != nil {
		return nil, fmt.Errorf("renaming %s: %w", partial, err)
	}
	ok = true

	info, err := os.Stat(dest)
	if err != nil {
		return nil, err
	}
	res.Size = info.Size()
	return res, nil
}

// openError marks failures that happen before anything is written for a file.
type openError struct{ err error }

func (e *openError) Error() string { return e.err.Error() }
func (e *openError) Unwrap() error { return e.err }

// AddFile adds a single file to a tar writer under the given archive path,
// keeping its permission bits and modification time.
func AddFile(tw *tar.Writer, srcPath, archivePath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return &openError{err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &openError{err}
	}
	if !info.Mode().IsRegular() {
		return &openError{fmt.Errorf("%s is not a regular file", srcPath)}
	}

	hdr := &tar.Header{
		Name:     archivePath,
		Mode:     int64(info.Mode().Perm()),
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.CopyN(tw, f, info.Size())
	return err
}

// NewWriter returns a gzip+tar writer wrapping w.
// The caller must close both the returned *tar.Writer and *gzip.Writer.
func NewWriter(w io.Writer) (*tar.Writer, *gzip.Writer) {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)
	return tw, gw
}

// Extract unpacks a tar.gz from r into destDir.
// Entry names are never used as destination paths directly: every target is
// resolved under destDir and anything escaping it is skipped.
func Extract(r io.Reader, destDir string) (int, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("gzip: %w", err)
	}
	defer gr.Close()
	return ExtractTar(gr, destDir)
}

// ExtractTar unpacks an uncompressed tar, such as an uploaded bundle, from r
// into destDir with the same path confinement as Extract.
func ExtractTar(r io.Reader, destDir string) (int, error) {
	root := filepath.Clean(destDir)
	n := 0
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("tar: %w", err)
		}

		target := filepath.Join(root, filepath.Clean("/"+hdr.Name))
		if !strings.HasPrefix(target, root+string(filepath.Separator)) {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return n, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return n, err
			}
			f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return n, err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return n, err
			}
			if err := f.Close(); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
