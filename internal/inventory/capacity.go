package inventory

// DefaultEstimate is assumed for the next upload when the cache knows no prior upload size.
const DefaultEstimate int64 = 110 << 20

// Headroom is applied to the latest upload size to estimate the next one.
const Headroom = 1.10

// Capacity is the planner's view of the vault before an upload.
type Capacity struct {
	Used      int64
	Remaining int64
	Estimate  int64
	// Deficit is how much must be freed before the estimate fits; zero when admitted.
	Deficit int64
	Admit   bool
}

// PlanCapacity decides whether the next upload fits.
// The upload is admitted iff Estimate < Remaining.
func PlanCapacity(c *Cache) Capacity {
	used := c.Used()
	plan := Capacity{
		Used:      used,
		Remaining: c.VaultMaxSize - used,
		Estimate:  EstimateNext(c.Entries),
	}
	if plan.Estimate < plan.Remaining {
		plan.Admit = true
		return plan
	}
	plan.Deficit = plan.Estimate - plan.Remaining
	return plan
}

// EstimateNext returns 110% of the most recent upload, or DefaultEstimate.
// Ties on upload time go to the larger archive id.
func EstimateNext(entries []Entry) int64 {
	var latest *Entry
	for i := range entries {
		e := &entries[i]
		if latest == nil || e.UploadTime > latest.UploadTime ||
			(e.UploadTime == latest.UploadTime && e.ArchiveID > latest.ArchiveID) {
			latest = e
		}
	}
	if latest == nil || latest.Size <= 0 {
		return DefaultEstimate
	}
	return int64(float64(latest.Size) * Headroom)
}
