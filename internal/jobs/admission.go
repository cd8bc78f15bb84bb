package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/flo-mic/glacierbak/internal/inventory"
)

// Admission gates new inventory-retrieval requests.
type Admission struct {
	// Window is how old the last authoritative inventory must be.
	Window time.Duration
	// Spacing is the minimum time between two requests, whatever their outcome.
	Spacing time.Duration
}

// ShouldRequest reports whether a new job may be requested at now, and why not.
func (a Admission) ShouldRequest(cache *inventory.Cache, outstanding []Job, now time.Time) (bool, string) {
	if len(outstanding) > 0 {
		return false, "jobs outstanding"
	}
	if age := now.Sub(time.Unix(cache.LastAuthoritativeInventoryTime, 0)); age <= a.Window {
		return false, "inventory fresh"
	}
	if since := now.Sub(time.Unix(cache.LastInventoryRequestTime, 0)); since <= a.Spacing {
		return false, "requested recently"
	}
	return true, ""
}

// Request starts a new job when admitted. The request time is stamped on the
// cache even when the provider rejects the request; a rejection is logged and
// the returned list is unchanged.
func (a Admission) Request(ctx context.Context, r Requester, vault string, cache *inventory.Cache, outstanding []Job, now time.Time, log *slog.Logger) []Job {
	ok, why := a.ShouldRequest(cache, outstanding, now)
	if !ok {
		log.Debug("not requesting inventory", "reason", why)
		return outstanding
	}

	cache.LastInventoryRequestTime = now.Unix()
	id, err := r.RequestInventory(ctx, vault)
	if err != nil {
		log.Error("inventory request rejected", "vault", vault, "error", err)
		return outstanding
	}
	log.Info("requested inventory", "vault", vault, "job", id)
	return append(outstanding, Job{VaultID: vault, JobID: id, RequestedAt: now.Unix()})
}
