package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "includeexclude.json")
	os.WriteFile(path, []byte(`{"includes": ["/home/me/docs"], "excludes": ["*.tmp", "node_modules"]}`), 0644)

	spec, err := LoadFileSpec(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spec.Includes) != 1 || spec.Includes[0] != "/home/me/docs" {
		t.Errorf("Includes = %v", spec.Includes)
	}
	if len(spec.Excludes) != 2 {
		t.Errorf("Excludes = %v", spec.Excludes)
	}
}

func TestLoadFileSpec_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"includes": [`), 0644)
	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, []byte(`{"includes": [], "excludes": ["*.log"]}`), 0644)

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.json")},
		{"unparsable", bad},
		{"no includes", empty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFileSpec(tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := LoadFileSpec(empty)
	if !errors.Is(err, ErrNoIncludes) {
		t.Errorf("expected ErrNoIncludes, got %v", err)
	}
}

func TestSaveFileSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "spec.json")
	if err := SaveFileSpec(path, &FileSpec{Includes: []string{"/etc"}, Excludes: []string{"*.bak"}}); err != nil {
		t.Fatal(err)
	}
	spec, err := LoadFileSpec(path)
	if err != nil {
		t.Fatal(err)
	}
	if spec.Excludes[0] != "*.bak" {
		t.Errorf("Excludes = %v", spec.Excludes)
	}
}

func TestExpandHome(t *testing.T) {
	tests := []struct{ in, want string }{
		{"~", "/home/u"},
		{"~/x/y", "/home/u/x/y"},
		{"/abs", "/abs"},
		{"rel/~", "rel/~"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in, "/home/u"); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
