package cmd

import (
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"
	"github.com/spf13/cobra"

	"github.com/flo-mic/glacierbak/internal/stage"
)

// NewLocalCommand creates the local stage command.
func NewLocalCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "local",
		Short: "Scan the include paths and write a full or incremental archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			st := &stage.Local{
				Config:     rt.cfg.Local,
				Cipher:     cipherFor(rt.cfg, rt.log),
				Clock:      clock.WallClock,
				Log:        rt.log,
				MetricsDir: rt.cfg.MetricsDir,
			}
			rep, err := st.Run(cmd.Context())
			if err != nil {
				rt.log.Error("local stage failed", "error", err)
				return classify("local stage failed", err)
			}

			kind := "incremental"
			if rep.Plan.Full() {
				kind = "full"
			}
			printf(cmd, "%s backup %s: %d files, %s (%s)\n",
				kind, filepath.Base(rep.ArchivePath), rep.Archive.Files,
				humanize.IBytes(uint64(rep.Archive.Size)), rep.Plan.Reason)
			if len(rep.Archive.Skipped) > 0 {
				printf(cmd, "%d files vanished or became unreadable and will be retried\n", len(rep.Archive.Skipped))
			}
			if rep.Plan.MarkReady {
				printf(cmd, "backup set complete, ready for upload\n")
			}
			return nil
		},
	}
}
