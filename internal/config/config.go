package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvEncryptionKey overrides encryption_key from the config file.
const EnvEncryptionKey = "GLACIERBAK_ENCRYPTION_KEY"

// Config is loaded from ~/.config/glacierbak/config.yaml.
// A loaded Config is treated as read-only; components receive the parts they need.
type Config struct {
	LogLevel      string       `yaml:"log_level"`
	MetricsDir    string       `yaml:"metrics_dir"`
	OpenSSLBinary string       `yaml:"openssl_binary"`
	EncryptionKey string       `yaml:"encryption_key"`
	Local         LocalConfig  `yaml:"local"`
	Remote        RemoteConfig `yaml:"remote"`
}

// LocalConfig drives the local incremental stage.
type LocalConfig struct {
	SpecFile                 string `yaml:"spec_file"`
	StateFile                string `yaml:"state_file"`
	ArchiveDir               string `yaml:"archive_dir"`
	MaxIncrementsBetweenFull *int   `yaml:"max_increments_between_full"`
	HashWorkers              int    `yaml:"hash_workers"`
	// PreHook runs before the scan; a failure aborts the run.
	PreHook                  string `yaml:"pre_hook"`
	// PostHook runs after the state is saved; a failure is only logged.
	PostHook                 string `yaml:"post_hook"`
}

// RemoteConfig drives the vault lifecycle stage.
type RemoteConfig struct {
	Vault                   string        `yaml:"vault"`
	Region                  string        `yaml:"region"`
	AccessKeyID             string        `yaml:"access_key_id"`
	SecretAccessKey         string        `yaml:"secret_access_key"`
	VaultSizeLimit          int64         `yaml:"vault_size_limit"`
	InventoryFile           string        `yaml:"inventory_file"`
	CacheFile               string        `yaml:"cache_file"`
	JobsFile                string        `yaml:"jobs_file"`
	InventoryRequestWindow  time.Duration `yaml:"inventory_request_window"`
	InventoryRequestSpacing time.Duration `yaml:"inventory_request_spacing"`
	MinRetentionDays        int           `yaml:"min_retention_days"`
	StagingDir              string        `yaml:"staging_dir"`
}

// Defaults for fields left empty in the config file.
const (
	DefaultMaxIncrements           = 7
	DefaultHashWorkers             = 4
	DefaultVaultSizeLimit          = int64(1) << 40 // 1 TiB
	DefaultInventoryRequestWindow  = 7 * 24 * time.Hour
	DefaultInventoryRequestSpacing = 48 * time.Hour
	DefaultMinRetentionDays        = 90
)

// ErrInvalid marks validation failures so the command layer can report them as usage errors.
var ErrInvalid = errors.New("invalid config")

// MinRetention returns the retention floor as a duration.
func (r RemoteConfig) MinRetention() time.Duration {
	return time.Duration(r.MinRetentionDays) * 24 * time.Hour
}

// MaxIncrements returns the configured chain length. Only valid after Load.
func (l LocalConfig) MaxIncrements() int {
	if l.MaxIncrementsBetweenFull == nil {
		return DefaultMaxIncrements
	}
	return *l.MaxIncrementsBetweenFull
}

// Load reads and parses the config file at path, applies defaults and the
// environment override, expands ~ in paths and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}

	if k := os.Getenv(EnvEncryptionKey); k != "" {
		cfg.EncryptionKey = k
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.OpenSSLBinary == "" {
		c.OpenSSLBinary = "openssl"
	}

	dirs, err := DefaultDirs()
	if err != nil {
		return err
	}

	l := &c.Local
	if l.SpecFile == "" {
		l.SpecFile = dirs.SpecFile()
	}
	if l.StateFile == "" {
		l.StateFile = dirs.StatePath("previousfilestore.json")
	}
	if l.MaxIncrementsBetweenFull == nil {
		n := DefaultMaxIncrements
		l.MaxIncrementsBetweenFull = &n
	}
	if l.HashWorkers <= 0 {
		l.HashWorkers = DefaultHashWorkers
	}

	r := &c.Remote
	if r.VaultSizeLimit == 0 {
		r.VaultSizeLimit = DefaultVaultSizeLimit
	}
	if r.InventoryFile == "" {
		r.InventoryFile = dirs.StatePath("inventory.json")
	}
	if r.CacheFile == "" {
		r.CacheFile = dirs.StatePath("inventorycache.json")
	}
	if r.JobsFile == "" {
		r.JobsFile = dirs.StatePath("outstandingjobs.json")
	}
	if r.InventoryRequestWindow == 0 {
		r.InventoryRequestWindow = DefaultInventoryRequestWindow
	}
	if r.InventoryRequestSpacing == 0 {
		r.InventoryRequestSpacing = DefaultInventoryRequestSpacing
	}
	if r.MinRetentionDays == 0 {
		r.MinRetentionDays = DefaultMinRetentionDays
	}

	for _, p := range []*string{
		&c.MetricsDir, &l.SpecFile, &l.StateFile, &l.ArchiveDir,
		&r.InventoryFile, &r.CacheFile, &r.JobsFile, &r.StagingDir,
	} {
		*p = ExpandHome(*p, dirs.Home)
	}
	return nil
}

// Validate checks fields that have no sensible default.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q must be one of debug, info, warn, error", ErrInvalid, c.LogLevel)
	}
	if c.Local.ArchiveDir == "" {
		return fmt.Errorf("%w: 'local.archive_dir' is required", ErrInvalid)
	}
	if c.Local.MaxIncrements() < 0 {
		return fmt.Errorf("%w: 'local.max_increments_between_full' must be >= 0", ErrInvalid)
	}
	if c.Remote.VaultSizeLimit < 0 {
		return fmt.Errorf("%w: 'remote.vault_size_limit' must be positive", ErrInvalid)
	}
	if (c.Remote.AccessKeyID == "") != (c.Remote.SecretAccessKey == "") {
		return fmt.Errorf("%w: 'remote.access_key_id' and 'remote.secret_access_key' must be set together", ErrInvalid)
	}
	if c.Remote.MinRetentionDays < 0 {
		return fmt.Errorf("%w: 'remote.min_retention_days' must be >= 0", ErrInvalid)
	}
	return nil
}

// RequireRemote checks the fields only the remote stage needs.
func (c *Config) RequireRemote() error {
	if c.Remote.Vault == "" {
		return fmt.Errorf("%w: 'remote.vault' is required", ErrInvalid)
	}
	return nil
}
