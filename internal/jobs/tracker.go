package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flo-mic/glacierbak/internal/inventory"
	"github.com/flo-mic/glacierbak/internal/statefile"
)

// PollResult summarises one poll cycle.
type PollResult struct {
	Succeeded int
	Failed    int
	Pending   int
}

// Tracker drains finished jobs into the inventory cache.
type Tracker struct {
	Client Client
	// SnapshotPath receives the raw output of every job that advances the cut-off.
	SnapshotPath string
	Log          *slog.Logger
}

// Poll checks every job once. Succeeded jobs are fetched, reconciled into
// cache and persisted as the new authoritative snapshot. Failed jobs and jobs
// whose output is not an inventory are dropped and counted as failed.
// Everything else, including jobs whose status or output cannot be
// fetched, is kept for the next run. Only a failure to persist the snapshot
// is returned as an error.
func (t *Tracker) Poll(ctx context.Context, list []Job, cache *inventory.Cache) ([]Job, *inventory.Cache, PollResult, error) {
	var res PollResult
	remaining := make([]Job, 0, len(list))

	for i, job := range list {
		log := t.Log.With("job", job.JobID, "vault", job.VaultID)

		status, msg, err := t.Client.JobStatus(ctx, job.VaultID, job.JobID)
		if err != nil {
			log.Warn("job status query failed, keeping job", "error", err)
			remaining = append(remaining, job)
			res.Pending++
			continue
		}

		switch status {
		case StatusFailed:
			log.Error("inventory job failed, dropping", "message", msg)
			res.Failed++

		case StatusSucceeded:
			data, err := t.Client.JobOutput(ctx, job.VaultID, job.JobID)
			if err != nil {
				log.Warn("cannot fetch job output, keeping job", "error", err)
				remaining = append(remaining, job)
				res.Pending++
				continue
			}
			snap, err := inventory.ParseSnapshot(data)
			if err != nil {
				log.Error("job output is not a valid inventory, dropping job", "error", err)
				res.Failed++
				continue
			}
			updated, err := t.apply(data, snap, cache, log)
			if err != nil {
				// Persisting failed: keep this and every later job.
				remaining = append(remaining, list[i:]...)
				return remaining, cache, res, err
			}
			cache = updated
			res.Succeeded++

		default:
			log.Info("inventory job still pending",
				"requested", time.Unix(job.RequestedAt, 0).UTC().Format(time.RFC3339))
			remaining = append(remaining, job)
			res.Pending++
		}
	}
	return remaining, cache, res, nil
}

// apply reconciles snap into cache and, unless the snapshot is older than
// the cached cut-off, saves its raw form as the new authoritative snapshot.
func (t *Tracker) apply(data []byte, snap *inventory.Snapshot, cache *inventory.Cache, log *slog.Logger) (*inventory.Cache, error) {
	out, rr := inventory.Reconcile(cache, snap)
	if rr.Stale {
		log.Warn("inventory snapshot is older than the cached one, ignoring",
			"snapshot", snap.InventoryDate.Format(time.RFC3339))
		return out, nil
	}
	if err := statefile.WriteAtomic(t.SnapshotPath, data, 0644); err != nil {
		return nil, fmt.Errorf("saving inventory snapshot: %w", err)
	}
	log.Info("reconciled inventory",
		"cutoff", snap.InventoryDate.Format(time.RFC3339),
		"authoritative", rr.Authoritative,
		"kept_provisional", rr.Kept,
		"dropped", rr.Dropped)
	return out, nil
}
