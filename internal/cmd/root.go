// Package cmd wires the glacierbak subcommands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/flo-mic/glacierbak/internal/config"
	"github.com/flo-mic/glacierbak/internal/crypt"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	LogFile    string
}

// NewRootCommand creates the glacierbak command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	defaultConfig := ""
	if dirs, err := config.DefaultDirs(); err == nil {
		defaultConfig = dirs.ConfigPath()
	}

	cmd := &cobra.Command{
		Use:   "glacierbak",
		Short: "Incremental local backups shipped to a Glacier vault",
		Long: `glacierbak keeps a chain of full and incremental tar.gz archives on local
disk and ships every closed chain to an Amazon S3 Glacier vault, pruning
the oldest archives past the retention floor when the vault runs full.

Run "glacierbak local" and "glacierbak remote" on a schedule; see
"glacierbak install-timer".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfig, "path to config.yaml")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "also append logs to this file")

	cmd.AddCommand(NewLocalCommand(opts))
	cmd.AddCommand(NewRemoteCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewInstallTimerCommand(opts))
	cmd.AddCommand(NewExtractCommand(opts))

	return cmd
}

// runtime is what a stage command needs after flag parsing.
type runtime struct {
	cfg   *config.Config
	log   *slog.Logger
	close func()
}

// setup loads the config and builds the run logger.
func (o *RootOptions) setup(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "cannot load config", err)
	}
	log, closeLog, err := o.logger(cmd, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, log: log, close: closeLog}, nil
}

// logger writes text records to stderr, and to --log-file when set. Every
// record carries the command name and a per-run id.
func (o *RootOptions) logger(cmd *cobra.Command, level string) (*slog.Logger, func(), error) {
	var w io.Writer = cmd.ErrOrStderr()
	closeLog := func() {}
	if o.LogFile != "" {
		f, err := os.OpenFile(o.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "cannot open log file", err)
		}
		w = io.MultiWriter(w, f)
		closeLog = func() { f.Close() }
	}

	lvl := parseLevel(level)
	if o.Verbose {
		lvl = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	log := slog.New(h).With("cmd", cmd.Name(), "run", uuid.NewString())
	return log, closeLog, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func cipherFor(cfg *config.Config, log *slog.Logger) *crypt.Cipher {
	return &crypt.Cipher{Binary: cfg.OpenSSLBinary, Key: cfg.EncryptionKey, Log: log}
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
