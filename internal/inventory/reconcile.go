package inventory

// ReconcileResult summarises one reconciliation.
type ReconcileResult struct {
	Authoritative int
	Kept          int // provisional entries newer than the cut-off
	Dropped       int
	// Stale is set when the snapshot is older than the cache's current cut-off
	// and was ignored.
	Stale bool
}

// Reconcile merges an authoritative snapshot into cache and returns a new cache.
//
// Every snapshot archive is copied as authoritative. Entries of the old cache
// are carried over only when their upload time is strictly after the
// snapshot's cut-off, since the provider could not have seen them yet. Older
// entries missing from the snapshot are dropped.
func Reconcile(cache *Cache, snap *Snapshot) (*Cache, ReconcileResult) {
	cutoff := snap.Cutoff()
	if cutoff < cache.LastAuthoritativeInventoryTime {
		return cache.Clone(), ReconcileResult{Stale: true}
	}

	out := &Cache{
		VaultName:                      cache.VaultName,
		VaultMaxSize:                   cache.VaultMaxSize,
		LastAuthoritativeInventoryTime: cutoff,
		LastInventoryRequestTime:       cache.LastInventoryRequestTime,
		Entries:                        []Entry{},
	}

	var res ReconcileResult
	for _, e := range snap.Entries() {
		if out.Add(e) {
			res.Authoritative++
		}
	}
	for _, e := range cache.Entries {
		if e.UploadTime > cutoff && out.Add(e) {
			res.Kept++
			continue
		}
		if !out.Has(e.ArchiveID) {
			res.Dropped++
		}
	}
	return out, res
}
