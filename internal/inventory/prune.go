package inventory

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"
)

// Deleter removes an archive from the vault.
type Deleter interface {
	DeleteArchive(ctx context.Context, archiveID string) error
}

// PruneResult reports what a prune pass did.
type PruneResult struct {
	Selected  []Entry
	Deleted   []string
	Failed    []string
	Freed     int64
	Satisfied bool
}

// Pruner frees vault space by deleting the oldest archives past the retention floor.
type Pruner struct {
	Deleter      Deleter
	Clock        clock.Clock
	MinRetention time.Duration
	Log          *slog.Logger
}

// Candidates returns the entries older than minRetention at now, oldest first
// with ties broken by archive id.
func Candidates(entries []Entry, now time.Time, minRetention time.Duration) []Entry {
	floor := int64(minRetention / time.Second)
	var out []Entry
	for _, e := range entries {
		if now.Unix()-e.UploadTime > floor {
			out = append(out, e)
		}
	}
	SortOldestFirst(out)
	return out
}

// Select accumulates candidates until their total size exceeds deficit.
func Select(candidates []Entry, deficit int64) []Entry {
	var picked []Entry
	var total int64
	for _, e := range candidates {
		if total > deficit {
			break
		}
		picked = append(picked, e)
		total += e.Size
	}
	return picked
}

// Prune deletes the selected archives and returns the updated cache.
// A failed delete leaves its entry in the cache and the pass continues.
// Satisfied is true when the space actually freed covers deficit.
func (p *Pruner) Prune(ctx context.Context, cache *Cache, deficit int64) (*Cache, PruneResult) {
	out := cache.Clone()
	if deficit <= 0 {
		return out, PruneResult{Satisfied: true}
	}

	cands := Candidates(cache.Entries, p.Clock.Now(), p.MinRetention)
	res := PruneResult{Selected: Select(cands, deficit)}
	p.Log.Info("prune plan",
		"deficit", humanize.IBytes(uint64(deficit)),
		"eligible", len(cands),
		"selected", len(res.Selected))

	for _, e := range res.Selected {
		if err := p.Deleter.DeleteArchive(ctx, e.ArchiveID); err != nil {
			p.Log.Warn("delete failed, keeping archive in inventory", "archive", e.ArchiveID, "error", err)
			res.Failed = append(res.Failed, e.ArchiveID)
			continue
		}
		out.Remove(e.ArchiveID)
		res.Deleted = append(res.Deleted, e.ArchiveID)
		res.Freed += e.Size
		p.Log.Info("deleted archive",
			"archive", e.ArchiveID,
			"description", e.Description,
			"uploaded", e.Uploaded().UTC().Format(time.RFC3339),
			"size", humanize.IBytes(uint64(e.Size)))
	}
	res.Satisfied = res.Freed >= deficit
	return out, res
}
