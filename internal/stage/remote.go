package stage

import (
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"

	"github.com/flo-mic/glacierbak/internal/config"
	"github.com/flo-mic/glacierbak/internal/crypt"
	"github.com/flo-mic/glacierbak/internal/inventory"
	"github.com/flo-mic/glacierbak/internal/jobs"
	"github.com/flo-mic/glacierbak/internal/metrics"
	"github.com/flo-mic/glacierbak/internal/ship"
)

// Provider is everything the remote stage needs from the vault.
type Provider interface {
	jobs.Client
	jobs.Requester
	inventory.Deleter
	ship.Uploader
	Vault() string
}

// Remote runs the vault-side stage: job draining, inventory requests,
// capacity planning, pruning and upload.
type Remote struct {
	Config     config.RemoteConfig
	ArchiveDir string
	Provider   Provider
	Cipher     *crypt.Cipher
	Clock      clock.Clock
	Log        *slog.Logger
	MetricsDir string
}

// RemoteReport describes a finished remote run.
type RemoteReport struct {
	Poll     jobs.PollResult
	Jobs     int
	Capacity inventory.Capacity
	Prune    *inventory.PruneResult
	Shipment *ship.Shipment
	// Deferred is set when a closed set stays local because the vault is full.
	Deferred bool
}

// Run performs one remote pass. Cache and job list are persisted before any
// error from the upload is returned.
func (r *Remote) Run(ctx context.Context) (*RemoteReport, error) {
	vault := r.Provider.Vault()
	cache, err := inventory.LoadCache(r.Config.CacheFile, vault, r.Config.VaultSizeLimit, r.Log)
	if err != nil {
		return nil, err
	}
	list, err := jobs.Load(r.Config.JobsFile, r.Log)
	if err != nil {
		return nil, err
	}

	report := &RemoteReport{}
	tracker := &jobs.Tracker{Client: r.Provider, SnapshotPath: r.Config.InventoryFile, Log: r.Log}
	list, cache, report.Poll, err = tracker.Poll(ctx, list, cache)
	if err != nil {
		if perr := r.persist(cache, list); perr != nil {
			r.Log.Error("cannot persist remote state", "error", perr)
		}
		return nil, err
	}

	admission := jobs.Admission{Window: r.Config.InventoryRequestWindow, Spacing: r.Config.InventoryRequestSpacing}
	list = admission.Request(ctx, r.Provider, vault, cache, list, r.Clock.Now(), r.Log)
	report.Jobs = len(list)

	shipper := &ship.Shipper{
		ArchiveDir: r.ArchiveDir,
		StagingDir: r.Config.StagingDir,
		Cipher:     r.Cipher,
		Uploader:   r.Provider,
		Clock:      r.Clock,
		Log:        r.Log,
	}

	report.Capacity = inventory.PlanCapacity(cache)
	if !shipper.Ready() {
		r.Log.Info("no closed backup set, nothing to upload")
		return r.finish(report, cache, list, nil)
	}

	capacity := report.Capacity
	r.Log.Info("vault capacity",
		"used", humanize.IBytes(uint64(capacity.Used)),
		"remaining", humanize.IBytes(uint64(max(capacity.Remaining, 0))),
		"estimate", humanize.IBytes(uint64(capacity.Estimate)),
		"admit", capacity.Admit)

	if !capacity.Admit {
		pruner := &inventory.Pruner{
			Deleter:      r.Provider,
			Clock:        r.Clock,
			MinRetention: r.Config.MinRetention(),
			Log:          r.Log,
		}
		var res inventory.PruneResult
		cache, res = pruner.Prune(ctx, cache, capacity.Deficit)
		report.Prune = &res
		if !res.Satisfied {
			r.Log.Warn("vault full and retention floor reached, keeping set local",
				"deficit", humanize.IBytes(uint64(capacity.Deficit)),
				"freed", humanize.IBytes(uint64(res.Freed)))
			report.Deferred = true
			return r.finish(report, cache, list, nil)
		}
	}

	shipment, err := shipper.Ship(ctx, cache)
	report.Shipment = shipment
	return r.finish(report, cache, list, err)
}

// finish persists state and exports metrics. A persistence failure wins over
// runErr only when runErr is nil.
func (r *Remote) finish(report *RemoteReport, cache *inventory.Cache, list []jobs.Job, runErr error) (*RemoteReport, error) {
	if err := r.persist(cache, list); err != nil {
		if runErr != nil {
			r.Log.Error("cannot persist remote state", "error", err)
			return nil, runErr
		}
		return nil, err
	}
	if runErr != nil {
		return nil, runErr
	}

	after := inventory.PlanCapacity(cache)
	m := metrics.NewRemote()
	m.VaultUsed.Set(float64(after.Used))
	m.VaultRemaining.Set(float64(after.Remaining))
	m.NextEstimate.Set(float64(after.Estimate))
	m.Entries.Set(float64(len(cache.Entries)))
	m.Provisional.Set(float64(cache.Provisional()))
	m.OutstandingJobs.Set(float64(len(list)))
	if report.Prune != nil {
		m.Pruned.Set(float64(len(report.Prune.Deleted)))
	}
	if report.Shipment != nil {
		m.UploadedBytes.Set(float64(report.Shipment.Entry.Size))
	}
	m.LastSuccess.Set(float64(r.Clock.Now().Unix()))
	if err := m.Write(r.MetricsDir); err != nil {
		r.Log.Warn("cannot export metrics", "error", err)
	}
	return report, nil
}

func (r *Remote) persist(cache *inventory.Cache, list []jobs.Job) error {
	if err := jobs.Save(r.Config.JobsFile, list); err != nil {
		return err
	}
	return inventory.SaveCache(r.Config.CacheFile, cache)
}
