// Package stage runs the local and remote backup stages end to end.
// Helpers below it return errors; this package decides which ones abort a run.
package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"

	"github.com/flo-mic/glacierbak/internal/archive"
	"github.com/flo-mic/glacierbak/internal/config"
	"github.com/flo-mic/glacierbak/internal/crypt"
	"github.com/flo-mic/glacierbak/internal/delta"
	"github.com/flo-mic/glacierbak/internal/hook"
	"github.com/flo-mic/glacierbak/internal/metrics"
	"github.com/flo-mic/glacierbak/internal/rotation"
)

// ErrConfig marks failures caused by configuration or the include/exclude spec.
var ErrConfig = errors.New("configuration error")

// Local runs the incremental backup stage.
type Local struct {
	Config     config.LocalConfig
	Cipher     *crypt.Cipher
	Clock      clock.Clock
	Log        *slog.Logger
	MetricsDir string
}

// LocalReport describes a finished local run.
type LocalReport struct {
	Plan          rotation.Plan
	ArchivePath   string
	Archive       *archive.Result
	MarkerCreated bool
}

// Run scans, decides, archives and persists the new state.
func (l *Local) Run(ctx context.Context) (*LocalReport, error) {
	spec, err := config.LoadFileSpec(l.Config.SpecFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if err := hook.Run(ctx, "pre", l.Config.PreHook, l.Log); err != nil {
		return nil, err
	}

	scanner := &delta.Scanner{
		Exclusions: delta.CompileExclusions(spec.Excludes),
		Workers:    l.Config.HashWorkers,
		Log:        l.Log,
	}
	current, err := scanner.Scan(ctx, spec.Includes)
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	l.Log.Info("scan complete", "files", len(current), "roots", len(spec.Includes))

	prev, err := rotation.LoadState(l.Config.StateFile, l.Log)
	if err != nil {
		return nil, err
	}

	resolver := rotation.Resolver{
		MaxIncrements: l.Config.MaxIncrements(),
		ArchiveDir:    l.Config.ArchiveDir,
		Clock:         l.Clock,
	}
	plan, err := resolver.Resolve(current, prev)
	if err != nil {
		return nil, err
	}
	l.Log.Info("backup planned",
		"full", plan.Full(),
		"reason", plan.Reason.String(),
		"files", len(plan.Files),
		"increments_since_full", *plan.Metadata.NumIncrementals,
		"archive", plan.Metadata.ArchiveName)

	path := filepath.Join(l.Config.ArchiveDir, plan.ArchiveFile())
	res, err := archive.Build(path, plan.Files, l.Log)
	if err != nil {
		return nil, fmt.Errorf("building archive: %w", err)
	}
	// Files skipped at build time are retried on the next run.
	for _, p := range res.Skipped {
		current[p] = delta.Unreadable
	}

	if l.Cipher.Enabled() {
		if path, err = l.Cipher.EncryptFile(ctx, path); err != nil {
			return nil, err
		}
	}

	report := &LocalReport{Plan: plan, ArchivePath: path, Archive: res}
	if plan.MarkReady {
		created, err := rotation.WriteMarker(l.Config.ArchiveDir, plan.Metadata.LastBackupTS)
		if err != nil {
			return nil, err
		}
		report.MarkerCreated = created
		l.Log.Info("backup set closed, ready for upload", "marker_created", created)
	}

	next := &rotation.State{Metadata: &plan.Metadata, Filelist: current}
	if err := rotation.SaveState(l.Config.StateFile, next); err != nil {
		return nil, err
	}

	if err := hook.Run(ctx, "post", l.Config.PostHook, l.Log); err != nil {
		l.Log.Warn("post hook failed, backup is kept", "error", err)
	}

	l.Log.Info("local backup complete",
		"archive", filepath.Base(path),
		"archived", res.Files,
		"skipped", len(res.Skipped),
		"size", humanize.IBytes(uint64(res.Size)))

	m := metrics.NewLocal()
	m.Files.Set(float64(res.Files))
	m.Skipped.Set(float64(len(res.Skipped)))
	if plan.Full() {
		m.Full.Set(1)
	}
	m.Increments.Set(float64(*plan.Metadata.NumIncrementals))
	m.ArchiveBytes.Set(float64(res.Size))
	m.LastSuccess.Set(float64(l.Clock.Now().Unix()))
	if err := m.Write(l.MetricsDir); err != nil {
		l.Log.Warn("cannot export metrics", "error", err)
	}
	return report, nil
}
