package stage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flo-mic/glacierbak/internal/archive"
	"github.com/flo-mic/glacierbak/internal/crypt"
)

// RestoreResult lists the archives applied, in order.
type RestoreResult struct {
	Archives []string
	Files    int
}

// Restore unpacks src into dest. src is either a local archive
// (<name>.tar.gz, optionally .enc) or a downloaded bundle (.tar, optionally
// .enc). Bundle members are applied in name order, which puts the full
// archive before its incrementals.
func Restore(ctx context.Context, cipher *crypt.Cipher, src, dest string, log *slog.Logger) (*RestoreResult, error) {
	work, err := os.MkdirTemp("", "glacierbak-restore-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(work)

	res := &RestoreResult{}
	plain, err := plaintext(ctx, cipher, src, work)
	if err != nil {
		return nil, err
	}

	switch name := filepath.Base(plain); {
	case strings.HasSuffix(name, ".tar.gz"):
		if err := applyArchive(plain, dest, res, log); err != nil {
			return nil, err
		}
	case strings.HasSuffix(name, ".tar"):
		members := filepath.Join(work, "members")
		if _, err := extractFile(plain, members, archive.ExtractTar); err != nil {
			return nil, fmt.Errorf("unpacking bundle %s: %w", filepath.Base(src), err)
		}
		entries, err := os.ReadDir(members)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if e.Type().IsRegular() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, n := range names {
			p, err := plaintext(ctx, cipher, filepath.Join(members, n), work)
			if err != nil {
				return nil, err
			}
			if !strings.HasSuffix(p, ".tar.gz") {
				log.Warn("skipping unknown bundle member", "name", n)
				continue
			}
			if err := applyArchive(p, dest, res, log); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s is neither a .tar.gz archive nor a .tar bundle", ErrConfig, filepath.Base(src))
	}
	return res, nil
}

// plaintext returns path unchanged unless it is encrypted, in which case the
// decrypted copy is written into work.
func plaintext(ctx context.Context, cipher *crypt.Cipher, path, work string) (string, error) {
	if !strings.HasSuffix(path, crypt.Suffix) {
		return path, nil
	}
	if !cipher.Enabled() {
		return "", fmt.Errorf("%w: %s is encrypted but no encryption key is configured", ErrConfig, filepath.Base(path))
	}
	out := filepath.Join(work, strings.TrimSuffix(filepath.Base(path), crypt.Suffix))
	if err := cipher.DecryptFile(ctx, path, out); err != nil {
		return "", err
	}
	return out, nil
}

func applyArchive(path, dest string, res *RestoreResult, log *slog.Logger) error {
	n, err := extractFile(path, dest, archive.Extract)
	res.Files += n
	if err != nil {
		return fmt.Errorf("extracting %s: %w", filepath.Base(path), err)
	}
	res.Archives = append(res.Archives, filepath.Base(path))
	log.Info("restored archive", "archive", filepath.Base(path), "files", n)
	return nil
}

func extractFile(path, dest string, extract func(io.Reader, string) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return extract(f, dest)
}
