package inventory

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the vault inventory document produced by an inventory-retrieval job.
type Snapshot struct {
	VaultARN      string            `json:"VaultARN"`
	InventoryDate time.Time         `json:"InventoryDate"`
	ArchiveList   []SnapshotArchive `json:"ArchiveList"`
}

// SnapshotArchive is one archive in a Snapshot.
type SnapshotArchive struct {
	ArchiveID          string    `json:"ArchiveId"`
	ArchiveDescription string    `json:"ArchiveDescription"`
	CreationDate       time.Time `json:"CreationDate"`
	Size               int64     `json:"Size"`
	SHA256TreeHash     string    `json:"SHA256TreeHash"`
}

// ParseSnapshot decodes an inventory document. The generation time is required
// because it is the reconciliation cut-off.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}
	if s.InventoryDate.IsZero() {
		return nil, fmt.Errorf("parsing inventory: missing InventoryDate")
	}
	return &s, nil
}

// Cutoff is the snapshot generation time in unix seconds.
func (s *Snapshot) Cutoff() int64 { return s.InventoryDate.Unix() }

// Entries converts the archive list into authoritative cache entries.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, 0, len(s.ArchiveList))
	for _, a := range s.ArchiveList {
		out = append(out, Entry{
			ArchiveID:   a.ArchiveID,
			Description: a.ArchiveDescription,
			UploadTime:  a.CreationDate.Unix(),
			Size:        a.Size,
		})
	}
	return out
}
