package cmd

import (
	"github.com/dustin/go-humanize"
	"github.com/juju/clock"
	"github.com/spf13/cobra"

	"github.com/flo-mic/glacierbak/internal/glacier"
	"github.com/flo-mic/glacierbak/internal/stage"
)

// NewRemoteCommand creates the remote stage command.
func NewRemoteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remote",
		Short: "Drain inventory jobs, prune the vault and upload a closed backup set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.close()
			if err := rt.cfg.RequireRemote(); err != nil {
				return WrapExitError(ExitCommandError, "remote stage not configured", err)
			}

			r := rt.cfg.Remote
			client, err := glacier.New(cmd.Context(), glacier.Options{
				Vault:           r.Vault,
				Region:          r.Region,
				AccessKeyID:     r.AccessKeyID,
				SecretAccessKey: r.SecretAccessKey,
			}, rt.log)
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot create vault client", err)
			}

			st := &stage.Remote{
				Config:     r,
				ArchiveDir: rt.cfg.Local.ArchiveDir,
				Provider:   client,
				Cipher:     cipherFor(rt.cfg, rt.log),
				Clock:      clock.WallClock,
				Log:        rt.log,
				MetricsDir: rt.cfg.MetricsDir,
			}
			rep, err := st.Run(cmd.Context())
			if err != nil {
				rt.log.Error("remote stage failed", "error", err)
				return classify("remote stage failed", err)
			}

			printf(cmd, "jobs: %d succeeded, %d failed, %d outstanding\n", rep.Poll.Succeeded, rep.Poll.Failed, rep.Jobs)
			if rep.Prune != nil {
				printf(cmd, "pruned %d archives, freed %s\n", len(rep.Prune.Deleted), humanize.IBytes(uint64(rep.Prune.Freed)))
			}
			switch {
			case rep.Shipment != nil:
				printf(cmd, "uploaded %s (%s) as %s\n", rep.Shipment.Entry.Description,
					humanize.IBytes(uint64(rep.Shipment.Entry.Size)), rep.Shipment.Entry.ArchiveID)
			case rep.Deferred:
				printf(cmd, "vault full, backup set kept locally\n")
			}
			return nil
		},
	}
}
