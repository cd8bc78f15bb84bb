package cmd

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/flo-mic/glacierbak/internal/stage"
)

// NewStatusCommand creates the read-only status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local chain and the cached vault view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			rep, err := stage.Status(rt.cfg, rt.log)
			if err != nil {
				return classify("cannot read state", err)
			}
			printStatus(cmd, rep)
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, rep *stage.StatusReport) {
	printf(cmd, "Local\n")
	if rep.Local == nil || rep.Local.Metadata == nil {
		printf(cmd, "  no backup yet\n")
	} else {
		m := rep.Local.Metadata
		printf(cmd, "  last archive:     %s\n", m.ArchiveName)
		if m.NumIncrementals != nil {
			printf(cmd, "  since last full:  %d incrementals\n", *m.NumIncrementals)
		}
		printf(cmd, "  tracked files:    %d\n", len(rep.Local.Filelist))
	}
	printf(cmd, "  archives on disk: %d\n", len(rep.LocalFiles))
	printf(cmd, "  set complete:     %t\n", rep.SetComplete)

	if rep.Cache == nil {
		printf(cmd, "\nRemote\n  not configured\n")
		return
	}
	c := rep.Cache
	printf(cmd, "\nRemote (%s)\n", rep.Vault)
	printf(cmd, "  archives:         %d (%d provisional)\n", len(c.Entries), c.Provisional())
	printf(cmd, "  used:             %s of %s\n", humanize.IBytes(uint64(rep.Capacity.Used)), humanize.IBytes(uint64(c.VaultMaxSize)))
	printf(cmd, "  next upload:      ~%s (fits: %t)\n", humanize.IBytes(uint64(rep.Capacity.Estimate)), rep.Capacity.Admit)
	printf(cmd, "  last inventory:   %s\n", ago(c.LastAuthoritativeInventoryTime))
	printf(cmd, "  last request:     %s\n", ago(c.LastInventoryRequestTime))
	printf(cmd, "  outstanding jobs: %d\n", len(rep.Jobs))
}

func ago(unix int64) string {
	if unix == 0 {
		return "never"
	}
	return humanize.Time(time.Unix(unix, 0))
}
