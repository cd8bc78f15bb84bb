package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, `
local:
  archive_dir: /var/backups/glacierbak
remote:
  vault: photos
  vault_size_limit: 5000
  inventory_request_window: 72h
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Remote.Vault != "photos" {
		t.Errorf("Vault = %q, want photos", cfg.Remote.Vault)
	}
	if cfg.Remote.VaultSizeLimit != 5000 {
		t.Errorf("VaultSizeLimit = %d", cfg.Remote.VaultSizeLimit)
	}
	if cfg.Remote.InventoryRequestWindow != 72*time.Hour {
		t.Errorf("InventoryRequestWindow = %v", cfg.Remote.InventoryRequestWindow)
	}
}

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, `
local:
  archive_dir: ~/archives
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Local.MaxIncrements() != DefaultMaxIncrements {
		t.Errorf("MaxIncrements = %d, want %d", cfg.Local.MaxIncrements(), DefaultMaxIncrements)
	}
	if cfg.Local.HashWorkers != DefaultHashWorkers {
		t.Errorf("HashWorkers = %d", cfg.Local.HashWorkers)
	}
	if cfg.Local.ArchiveDir != filepath.Join(home, "archives") {
		t.Errorf("ArchiveDir not expanded: %q", cfg.Local.ArchiveDir)
	}
	if cfg.Remote.MinRetention() != 90*24*time.Hour {
		t.Errorf("MinRetention = %v", cfg.Remote.MinRetention())
	}
	if cfg.Remote.InventoryRequestSpacing != DefaultInventoryRequestSpacing {
		t.Errorf("InventoryRequestSpacing = %v", cfg.Remote.InventoryRequestSpacing)
	}
	if cfg.Local.StateFile != filepath.Join(home, ".local", "state", "glacierbak", "previousfilestore.json") {
		t.Errorf("StateFile = %q", cfg.Local.StateFile)
	}
	if cfg.OpenSSLBinary != "openssl" {
		t.Errorf("OpenSSLBinary = %q", cfg.OpenSSLBinary)
	}
}

func TestLoad_ZeroIncrementsIsKept(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, `
local:
  archive_dir: /tmp/a
  max_increments_between_full: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Local.MaxIncrements() != 0 {
		t.Errorf("explicit 0 should not be replaced by the default, got %d", cfg.Local.MaxIncrements())
	}
}

func TestLoad_EnvOverridesKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvEncryptionKey, "from-env")
	path := writeConfig(t, `
encryption_key: from-file
local:
  archive_dir: /tmp/a
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.EncryptionKey != "from-env" {
		t.Errorf("EncryptionKey = %q, want from-env", cfg.EncryptionKey)
	}
}

func TestLoad_MissingArchiveDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := Load(writeConfig(t, "log_level: info\n"))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestLoad_BadLogLevel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := Load(writeConfig(t, "log_level: loud\nlocal:\n  archive_dir: /tmp/a\n"))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error when config file does not exist")
	}
}

func TestRequireRemote(t *testing.T) {
	cfg := &Config{}
	if err := cfg.RequireRemote(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid without vault, got %v", err)
	}
	cfg.Remote.Vault = "v"
	if err := cfg.RequireRemote(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	n := 3
	in := &Config{
		Local:  LocalConfig{ArchiveDir: "/srv/archives", MaxIncrementsBetweenFull: &n},
		Remote: RemoteConfig{Vault: "v1", InventoryRequestWindow: 24 * time.Hour},
	}
	if err := Save(path, in); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	out, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.Local.MaxIncrements() != 3 || out.Remote.InventoryRequestWindow != 24*time.Hour {
		t.Errorf("unexpected config after round trip: %+v", out)
	}
}

func TestLoad_PartialCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := Load(writeConfig(t, "local:\n  archive_dir: /tmp/a\nremote:\n  access_key_id: AKIA\n"))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for a key id without secret, got %v", err)
	}
}
