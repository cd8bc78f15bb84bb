package delta

import (
	"path/filepath"
	"strings"
)

// Exclusions is the compiled form of an exclude list.
type Exclusions struct {
	suffixes []string
	dirs     map[string]struct{}
}

// CompileExclusions splits patterns into extension suffixes ("*.tmp" skips files
// ending in ".tmp") and directory names (pruned from traversal wherever they occur).
func CompileExclusions(patterns []string) Exclusions {
	ex := Exclusions{dirs: make(map[string]struct{})}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "*") {
			if s := strings.TrimPrefix(p, "*"); s != "" {
				ex.suffixes = append(ex.suffixes, s)
			}
			continue
		}
		ex.dirs[strings.TrimSuffix(p, string(filepath.Separator))] = struct{}{}
	}
	return ex
}

// SkipFile reports whether a file name ends with an excluded suffix.
func (e Exclusions) SkipFile(name string) bool {
	base := filepath.Base(name)
	for _, s := range e.suffixes {
		if strings.HasSuffix(base, s) {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory with this name is pruned.
func (e Exclusions) SkipDir(name string) bool {
	_, ok := e.dirs[filepath.Base(name)]
	return ok
}
