package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/flo-mic/glacierbak/internal/config"
	"github.com/flo-mic/glacierbak/internal/crypt"
	"github.com/flo-mic/glacierbak/internal/stage"
)

// NewExtractCommand creates the restore command. It works without a config
// file, taking the passphrase from the environment.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <archive-or-bundle> <dest-dir>",
		Short: "Restore files from a local archive or a downloaded bundle",
		Long: `Restore files from a local archive (<name>.tar.gz) or from a bundle
downloaded from the vault (GlacierBackup-<timestamp>.tar). Encrypted inputs
(.enc) are decrypted first. A bundle's archives are applied full first, then
each incremental in order, so the destination ends up at the latest state.
Paths are recreated under dest-dir.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cipher := &crypt.Cipher{Binary: "openssl", Key: os.Getenv(config.EnvEncryptionKey)}
			level := "info"
			cfg, err := config.Load(rootOpts.ConfigPath)
			switch {
			case err == nil:
				cipher.Binary, cipher.Key = cfg.OpenSSLBinary, cfg.EncryptionKey
				level = cfg.LogLevel
			case !errors.Is(err, fs.ErrNotExist):
				return WrapExitError(ExitCommandError, "cannot load config", err)
			}

			log, closeLog, err := rootOpts.logger(cmd, level)
			if err != nil {
				return err
			}
			defer closeLog()
			cipher.Log = log

			res, err := stage.Restore(cmd.Context(), cipher, args[0], args[1], log)
			if err != nil {
				return classify("extract failed", err)
			}
			printf(cmd, "restored %d files from %d archives into %s\n", res.Files, len(res.Archives), args[1])
			return nil
		},
	}
}
