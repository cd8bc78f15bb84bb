// Package timer renders and installs the systemd units that schedule both stages.
package timer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/flo-mic/glacierbak/internal/statefile"
)

// DefaultUnitDir is where system units are installed.
const DefaultUnitDir = "/etc/systemd/system"

// Default schedules run the remote stage after the local one has finished.
const (
	DefaultLocalCalendar  = "*-*-* 02:00:00"
	DefaultRemoteCalendar = "*-*-* 04:00:00"
)

// Unit schedules one stage of the binary.
type Unit struct {
	// Stage is the subcommand to run: "local" or "remote".
	Stage      string
	Binary     string
	ConfigPath string
	OnCalendar string
	// User runs the service; empty means root.
	User string
}

// Name is the unit base name shared by the service and the timer.
func (u Unit) Name() string { return "glacierbak-" + u.Stage }

// Service renders the oneshot service unit.
func (u Unit) Service() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Unit]\nDescription=glacierbak %s stage\n", u.Stage)
	if u.Stage == "remote" {
		b.WriteString("Wants=network-online.target\nAfter=network-online.target\n")
	}
	b.WriteString("\n[Service]\nType=oneshot\n")
	if u.User != "" {
		fmt.Fprintf(&b, "User=%s\n", u.User)
	}
	fmt.Fprintf(&b, "ExecStart=%s --config %s %s\n", u.Binary, u.ConfigPath, u.Stage)
	if u.Stage == "local" {
		b.WriteString("Nice=10\nIOSchedulingClass=idle\n")
	}
	return b.String()
}

// Timer renders the timer unit.
func (u Unit) Timer() string {
	return fmt.Sprintf(`[Unit]
Description=Run glacierbak %s stage

[Timer]
OnCalendar=%s
Persistent=true
Unit=%s.service

[Install]
WantedBy=timers.target
`, u.Stage, u.OnCalendar, u.Name())
}

// Validate checks that the unit can be rendered.
func (u Unit) Validate() error {
	if u.Stage != "local" && u.Stage != "remote" {
		return fmt.Errorf("unknown stage %q", u.Stage)
	}
	if !filepath.IsAbs(u.Binary) {
		return fmt.Errorf("binary path must be absolute: %q", u.Binary)
	}
	if !filepath.IsAbs(u.ConfigPath) {
		return fmt.Errorf("config path must be absolute: %q", u.ConfigPath)
	}
	if u.OnCalendar == "" {
		return fmt.Errorf("%s: empty OnCalendar", u.Name())
	}
	return nil
}

// Installer writes units into Dir and activates their timers.
type Installer struct {
	Dir string
	// Enable runs enable --now on each timer after daemon-reload.
	Enable bool
	Log    *slog.Logger
}

// systemctl is replaced in tests.
var systemctl = runSystemctl

// Install writes the service and timer of every unit, reloads systemd and
// optionally enables the timers.
func (i *Installer) Install(ctx context.Context, units []Unit) ([]string, error) {
	var written []string
	for _, u := range units {
		if err := u.Validate(); err != nil {
			return written, err
		}
		for ext, body := range map[string]string{".service": u.Service(), ".timer": u.Timer()} {
			path := filepath.Join(i.Dir, u.Name()+ext)
			if err := statefile.WriteAtomic(path, []byte(body), 0644); err != nil {
				return written, fmt.Errorf("writing %s: %w", path, err)
			}
			i.Log.Info("placed unit", "path", path)
			written = append(written, path)
		}
	}

	if err := systemctl(ctx, i.Log, "daemon-reload"); err != nil {
		return written, err
	}
	if !i.Enable {
		return written, nil
	}
	for _, u := range units {
		if err := systemctl(ctx, i.Log, "enable", "--now", u.Name()+".timer"); err != nil {
			return written, err
		}
	}
	return written, nil
}

func runSystemctl(ctx context.Context, log *slog.Logger, args ...string) error {
	log.Debug("systemctl", "args", args)
	cmd := exec.CommandContext(ctx, "systemctl", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(out.String()))
	}
	return nil
}
