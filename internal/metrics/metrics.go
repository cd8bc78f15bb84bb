// Package metrics exports per-run gauges to a node-exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "glacierbak"

func gauge(reg *prometheus.Registry, subsystem, name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
	reg.MustRegister(g)
	return g
}

func write(dir, file string, reg *prometheus.Registry) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(filepath.Join(dir, file), reg); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

// Local holds the gauges of one local-stage run.
type Local struct {
	reg          *prometheus.Registry
	Files        prometheus.Gauge
	Skipped      prometheus.Gauge
	Full         prometheus.Gauge
	Increments   prometheus.Gauge
	ArchiveBytes prometheus.Gauge
	LastSuccess  prometheus.Gauge
}

// NewLocal registers the local-stage gauges on a private registry.
func NewLocal() *Local {
	reg := prometheus.NewRegistry()
	return &Local{
		reg:          reg,
		Files:        gauge(reg, "local", "archived_files", "Files written to the last archive."),
		Skipped:      gauge(reg, "local", "skipped_files", "Files that vanished or became unreadable before archiving."),
		Full:         gauge(reg, "local", "full_backup", "1 if the last archive was a full backup."),
		Increments:   gauge(reg, "local", "increments_since_full", "Incrementals produced since the last full backup."),
		ArchiveBytes: gauge(reg, "local", "archive_bytes", "Size of the last archive on disk."),
		LastSuccess:  gauge(reg, "local", "last_success_timestamp_seconds", "Unix time of the last successful local run."),
	}
}

// Write stores the gauges as dir/glacierbak_local.prom. An empty dir disables export.
func (l *Local) Write(dir string) error { return write(dir, "glacierbak_local.prom", l.reg) }

// Remote holds the gauges of one remote-stage run.
type Remote struct {
	reg             *prometheus.Registry
	VaultUsed       prometheus.Gauge
	VaultRemaining  prometheus.Gauge
	NextEstimate    prometheus.Gauge
	Entries         prometheus.Gauge
	Provisional     prometheus.Gauge
	OutstandingJobs prometheus.Gauge
	Pruned          prometheus.Gauge
	UploadedBytes   prometheus.Gauge
	LastSuccess     prometheus.Gauge
}

// NewRemote registers the remote-stage gauges on a private registry.
func NewRemote() *Remote {
	reg := prometheus.NewRegistry()
	return &Remote{
		reg:             reg,
		VaultUsed:       gauge(reg, "remote", "vault_used_bytes", "Bytes the inventory cache believes are stored."),
		VaultRemaining:  gauge(reg, "remote", "vault_remaining_bytes", "Configured vault limit minus used bytes."),
		NextEstimate:    gauge(reg, "remote", "next_upload_estimate_bytes", "Estimated size of the next upload."),
		Entries:         gauge(reg, "remote", "archives", "Archives in the inventory cache."),
		Provisional:     gauge(reg, "remote", "provisional_archives", "Archives not yet confirmed by an inventory."),
		OutstandingJobs: gauge(reg, "remote", "outstanding_jobs", "Inventory jobs still pending."),
		Pruned:          gauge(reg, "remote", "pruned_archives", "Archives deleted during the last run."),
		UploadedBytes:   gauge(reg, "remote", "uploaded_bytes", "Bytes uploaded during the last run."),
		LastSuccess:     gauge(reg, "remote", "last_success_timestamp_seconds", "Unix time of the last successful remote run."),
	}
}

// Write stores the gauges as dir/glacierbak_remote.prom. An empty dir disables export.
func (r *Remote) Write(dir string) error { return write(dir, "glacierbak_remote.prom", r.reg) }
