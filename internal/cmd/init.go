package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/flo-mic/glacierbak/internal/config"
)

// initAnswers are the raw wizard inputs.
type initAnswers struct {
	Includes      string
	Excludes      string
	ArchiveDir    string
	MaxIncrements string
	UseRemote     bool
	Vault         string
	Region        string
	VaultLimit    string
	EncryptionKey string
}

const defaultExcludes = "*.tmp, *.swp, .cache, node_modules, __pycache__"

// NewInitCommand creates the interactive setup wizard.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var reinit bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config.yaml and includeexclude.json interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, rootOpts.ConfigPath, reinit)
		},
	}
	cmd.Flags().BoolVarP(&reinit, "reinit", "r", false, "overwrite an existing configuration")
	return cmd
}

func runInit(cmd *cobra.Command, configPath string, reinit bool) error {
	if configPath == "" {
		return WrapExitError(ExitCommandError, "no config path", fmt.Errorf("use --config"))
	}
	if _, err := os.Stat(configPath); err == nil && !reinit {
		printf(cmd, "%s already exists. Run with --reinit to overwrite.\n", configPath)
		return nil
	}

	dirs, err := config.DefaultDirs()
	if err != nil {
		return err
	}
	a := initAnswers{
		Excludes:      defaultExcludes,
		ArchiveDir:    filepath.Join(dirs.Home, "glacierbak", "archives"),
		MaxIncrements: strconv.Itoa(config.DefaultMaxIncrements),
		VaultLimit:    "1 TiB",
	}

	printf(cmd, "Welcome to glacierbak init. Let's set up your backup.\n\n")

	if err := huh.NewForm(huh.NewGroup(
		huh.NewText().
			Title("Paths to back up").
			Description("One per line or comma separated. ~ is expanded.").
			Value(&a.Includes).
			Validate(func(s string) error {
				if len(splitList(s)) == 0 {
					return fmt.Errorf("at least one path is required")
				}
				return nil
			}),
		huh.NewText().
			Title("Exclusions").
			Description(`"*.ext" skips files by suffix, anything else skips directories by name.`).
			Value(&a.Excludes),
		huh.NewInput().
			Title("Archive directory").
			Description("Where the full and incremental archives are written.").
			Value(&a.ArchiveDir).
			Validate(nonEmpty("archive directory")),
		huh.NewInput().
			Title("Incrementals between full backups").
			Value(&a.MaxIncrements).
			Validate(func(s string) error {
				n, err := strconv.Atoi(strings.TrimSpace(s))
				if err != nil || n < 0 {
					return fmt.Errorf("must be a whole number >= 0")
				}
				return nil
			}),
	)).Run(); err != nil {
		return err
	}

	if err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Upload closed backup sets to a Glacier vault?").
			Description("No = local backups only; the remote stage can be configured later.").
			Value(&a.UseRemote),
	)).Run(); err != nil {
		return err
	}

	if a.UseRemote {
		if err := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Vault name").
				Value(&a.Vault).
				Validate(nonEmpty("vault name")),
			huh.NewInput().
				Title("AWS region").
				Description("Leave empty to use the AWS config or AWS_REGION.").
				Placeholder("eu-central-1").
				Value(&a.Region),
			huh.NewInput().
				Title("Vault size limit").
				Description("Oldest archives past the retention floor are pruned above this. e.g. 500 GiB").
				Value(&a.VaultLimit).
				Validate(func(s string) error {
					_, err := humanize.ParseBytes(s)
					return err
				}),
			huh.NewInput().
				Title("Encryption passphrase").
				Description("Archives are encrypted with openssl before upload. Leave empty to disable.").
				EchoMode(huh.EchoModePassword).
				Value(&a.EncryptionKey),
		)).Run(); err != nil {
			return err
		}
	}

	cfg, spec, err := buildInitFiles(a, dirs.Home, filepath.Dir(configPath))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid answers", err)
	}
	if err := config.SaveFileSpec(cfg.Local.SpecFile, spec); err != nil {
		return err
	}
	printf(cmd, "Created %s\n", cfg.Local.SpecFile)
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}
	printf(cmd, "Created %s\n", configPath)

	printf(cmd, "\nDone! Next steps:\n")
	printf(cmd, "  1. Run: glacierbak local\n")
	if a.UseRemote {
		printf(cmd, "  2. Make sure AWS credentials are available (env, ~/.aws or remote.access_key_id)\n")
		printf(cmd, "  3. Schedule both stages: sudo glacierbak install-timer\n")
	} else {
		printf(cmd, "  2. Schedule it: sudo glacierbak install-timer --stage local\n")
	}
	return nil
}

// buildInitFiles turns wizard answers into the files init writes. The
// include/exclude spec is placed next to the config file.
func buildInitFiles(a initAnswers, home, configDir string) (*config.Config, *config.FileSpec, error) {
	spec := &config.FileSpec{Excludes: splitList(a.Excludes)}
	for _, p := range splitList(a.Includes) {
		abs, err := filepath.Abs(config.ExpandHome(p, home))
		if err != nil {
			return nil, nil, err
		}
		spec.Includes = append(spec.Includes, abs)
	}
	if len(spec.Includes) == 0 {
		return nil, nil, config.ErrNoIncludes
	}

	n, err := strconv.Atoi(strings.TrimSpace(a.MaxIncrements))
	if err != nil || n < 0 {
		return nil, nil, fmt.Errorf("%w: incrementals between full backups must be >= 0", config.ErrInvalid)
	}

	cfg := &config.Config{
		LogLevel: "info",
		Local: config.LocalConfig{
			SpecFile:                 filepath.Join(configDir, "includeexclude.json"),
			ArchiveDir:               config.ExpandHome(strings.TrimSpace(a.ArchiveDir), home),
			MaxIncrementsBetweenFull: &n,
		},
	}
	if a.UseRemote {
		limit, err := humanize.ParseBytes(a.VaultLimit)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: vault size limit: %v", config.ErrInvalid, err)
		}
		cfg.EncryptionKey = a.EncryptionKey
		cfg.Remote = config.RemoteConfig{
			Vault:          strings.TrimSpace(a.Vault),
			Region:         strings.TrimSpace(a.Region),
			VaultSizeLimit: int64(limit),
		}
	}
	return cfg, spec, nil
}

// splitList splits on commas and newlines, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func nonEmpty(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", what)
		}
		return nil
	}
}
