package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flo-mic/glacierbak/internal/timer"
)

type installTimerOptions struct {
	stage    string
	localAt  string
	remoteAt string
	unitDir  string
	user     string
	binary   string
	noEnable bool
}

// NewInstallTimerCommand creates the command that schedules both stages with systemd.
func NewInstallTimerCommand(rootOpts *RootOptions) *cobra.Command {
	o := &installTimerOptions{}
	cmd := &cobra.Command{
		Use:   "install-timer",
		Short: "Install systemd timers that run the local and remote stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := o.units(rootOpts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid timer options", err)
			}
			log, closeLog, err := rootOpts.logger(cmd, "info")
			if err != nil {
				return err
			}
			defer closeLog()

			in := &timer.Installer{Dir: o.unitDir, Enable: !o.noEnable, Log: log}
			written, err := in.Install(cmd.Context(), units)
			for _, p := range written {
				printf(cmd, "Placed %s\n", p)
			}
			if err != nil {
				return WrapExitError(ExitFailure, "installing timers", err)
			}
			if !o.noEnable {
				for _, u := range units {
					printf(cmd, "Enabled %s.timer (%s)\n", u.Name(), u.OnCalendar)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&o.stage, "stage", "both", "which stage to schedule: local, remote or both")
	cmd.Flags().StringVar(&o.localAt, "local-at", timer.DefaultLocalCalendar, "systemd OnCalendar for the local stage")
	cmd.Flags().StringVar(&o.remoteAt, "remote-at", timer.DefaultRemoteCalendar, "systemd OnCalendar for the remote stage")
	cmd.Flags().StringVar(&o.unitDir, "unit-dir", timer.DefaultUnitDir, "directory for the unit files")
	cmd.Flags().StringVar(&o.user, "user", "", "run the services as this user (default root)")
	cmd.Flags().StringVar(&o.binary, "binary", "", "path to the glacierbak binary (default: this executable)")
	cmd.Flags().BoolVar(&o.noEnable, "no-enable", false, "write the units without enabling them")
	return cmd
}

func (o *installTimerOptions) units(configPath string) ([]timer.Unit, error) {
	bin := o.binary
	if bin == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, err
		}
		bin = exe
	}
	bin, err := filepath.Abs(bin)
	if err != nil {
		return nil, err
	}
	cfg, err := filepath.Abs(configPath)
	if err != nil {
		return nil, err
	}

	local := timer.Unit{Stage: "local", Binary: bin, ConfigPath: cfg, OnCalendar: o.localAt, User: o.user}
	remote := timer.Unit{Stage: "remote", Binary: bin, ConfigPath: cfg, OnCalendar: o.remoteAt, User: o.user}
	switch o.stage {
	case "local":
		return []timer.Unit{local}, nil
	case "remote":
		return []timer.Unit{remote}, nil
	case "both":
		return []timer.Unit{local, remote}, nil
	default:
		return nil, fmt.Errorf("--stage must be local, remote or both, got %q", o.stage)
	}
}
