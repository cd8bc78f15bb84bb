package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoIncludes is returned when the include/exclude spec names no paths to back up.
var ErrNoIncludes = errors.New("spec has no include paths")

// FileSpec is the include/exclude document read by the local stage.
// Excludes starting with "*" are extension suffixes; anything else is a directory name.
type FileSpec struct {
	Includes []string `json:"includes"`
	Excludes []string `json:"excludes"`
}

// LoadFileSpec reads the include/exclude JSON document at path.
// Missing, unparsable or empty specs are errors: the local stage must not scan without one.
func LoadFileSpec(path string) (*FileSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var spec FileSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	if len(spec.Includes) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoIncludes)
	}

	for i, p := range spec.Includes {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("%s: include %q: %w", path, p, err)
		}
		spec.Includes[i] = abs
	}
	return &spec, nil
}

// SaveFileSpec writes spec as indented JSON, used by the setup wizard.
func SaveFileSpec(path string, spec *FileSpec) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
