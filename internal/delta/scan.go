package delta

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Snapshot maps absolute file paths to their fingerprint.
type Snapshot map[string]string

// Paths returns the snapshot keys in sorted order.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Scanner walks include roots and fingerprints every file that survives the exclusions.
type Scanner struct {
	Exclusions Exclusions
	Workers    int
	Log        *slog.Logger
}

// Scan produces the current snapshot for the given include roots.
// Unreadable directories are logged and skipped; unreadable files are kept with
// the Unreadable fingerprint. Only context cancellation fails the scan.
func (s *Scanner) Scan(ctx context.Context, includes []string) (Snapshot, error) {
	var files []string
	for _, root := range includes {
		files = append(files, s.walk(root)...)
	}

	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}

	snap := make(Snapshot, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range files {
		path := path
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := Fingerprint(path)
			if err != nil {
				s.Log.Warn("cannot fingerprint file", "path", path, "error", err)
			}
			mu.Lock()
			snap[path] = sum
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Scanner) walk(root string) []string {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.Log.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && s.Exclusions.SkipDir(d.Name()) {
				s.Log.Debug("pruned excluded directory", "path", path)
				return filepath.SkipDir
			}
			return nil
		}

		if s.Exclusions.SkipFile(d.Name()) {
			return nil
		}
		if !isFile(path, d) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		s.Log.Warn("cannot walk include path", "path", root, "error", err)
	}
	return files
}

// isFile accepts regular files and symlinks that resolve to one.
func isFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
