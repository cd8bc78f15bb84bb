// Package ship uploads a closed full+incrementals set from the archive directory.
package ship

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"

	"github.com/flo-mic/glacierbak/internal/archive"
	"github.com/flo-mic/glacierbak/internal/crypt"
	"github.com/flo-mic/glacierbak/internal/inventory"
	"github.com/flo-mic/glacierbak/internal/rotation"
)

// BundlePrefix starts the name (and vault description) of every uploaded bundle.
const BundlePrefix = "GlacierBackup-"

// ErrUpload wraps a failed upload; the run must abort without recording an entry.
var ErrUpload = errors.New("upload failed")

// Uploader stores a file in the vault.
type Uploader interface {
	UploadArchive(ctx context.Context, path, description string) (string, error)
}

// Shipment describes a successful upload.
type Shipment struct {
	Entry inventory.Entry
	Files []string
}

// Shipper bundles, encrypts and uploads the archive directory once the local
// stage has marked the set complete.
type Shipper struct {
	ArchiveDir string
	// StagingDir holds the bundle while it is built; empty means the OS temp dir.
	StagingDir string
	Cipher     *crypt.Cipher
	Uploader   Uploader
	Clock      clock.Clock
	Log        *slog.Logger
}

// Ready reports whether the ready-for-upload marker is present.
func (s *Shipper) Ready() bool {
	return rotation.MarkerPresent(s.ArchiveDir)
}

// Collect lists the files of the set: everything under ArchiveDir except the
// marker and leftovers of interrupted archive builds.
func (s *Shipper) Collect() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.ArchiveDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if d.Name() == rotation.MarkerName || strings.HasSuffix(d.Name(), ".partial") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.ArchiveDir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Ship uploads the closed set and adds a provisional entry to cache, stamped
// when the upload returned. It returns nil when the marker was present but there was nothing to send.
func (s *Shipper) Ship(ctx context.Context, cache *inventory.Cache) (*Shipment, error) {
	files, err := s.Collect()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		s.Log.Warn("marker present but archive directory is empty, clearing marker")
		if err := os.Remove(rotation.MarkerPath(s.ArchiveDir)); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing marker: %w", err)
		}
		return nil, nil
	}

	now := s.Clock.Now()
	staging, err := os.MkdirTemp(s.StagingDir, "glacierbak-")
	if err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	bundle := filepath.Join(staging, BundlePrefix+now.Format(rotation.TimestampLayout)+".tar")
	if _, err := archive.Bundle(bundle, s.ArchiveDir, files, s.Log); err != nil {
		return nil, fmt.Errorf("bundling set: %w", err)
	}
	if s.Cipher.Enabled() {
		if bundle, err = s.Cipher.EncryptFile(ctx, bundle); err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(bundle)
	if err != nil {
		return nil, err
	}
	desc := filepath.Base(bundle)
	s.Log.Info("uploading set", "bundle", desc, "files", len(files), "size", humanize.IBytes(uint64(info.Size())))

	id, err := s.Uploader.UploadArchive(ctx, bundle, desc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpload, desc, err)
	}

	entry := inventory.Entry{
		ArchiveID:   id,
		Description: desc,
		UploadTime:  s.Clock.Now().Unix(),
		Size:        info.Size(),
		Provisional: true,
	}
	cache.Add(entry)
	s.Log.Info("upload complete", "archive", id)

	s.cleanup(files)
	return &Shipment{Entry: entry, Files: files}, nil
}

// cleanup removes the shipped files and then the marker. Failures are logged:
// the set is already in the vault.
func (s *Shipper) cleanup(files []string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			s.Log.Warn("cannot remove shipped file", "path", f, "error", err)
		}
	}
	if err := os.Remove(rotation.MarkerPath(s.ArchiveDir)); err != nil && !os.IsNotExist(err) {
		s.Log.Warn("cannot remove marker", "error", err)
	}
}
