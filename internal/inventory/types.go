package inventory

import (
	"sort"
	"time"
)

// Entry is one archive believed to exist in the vault.
// Provisional entries were recorded locally after an upload and have not been
// seen in an authoritative inventory yet.
type Entry struct {
	ArchiveID   string `json:"archiveId"`
	Description string `json:"description"`
	UploadTime  int64  `json:"uploadTime"` // unix seconds
	Size        int64  `json:"size"`
	Provisional bool   `json:"provisional,omitempty"`
}

// Uploaded returns UploadTime as a time.Time.
func (e Entry) Uploaded() time.Time { return time.Unix(e.UploadTime, 0) }

// Cache is the locally persisted view of the vault.
type Cache struct {
	VaultName                      string  `json:"vaultName"`
	VaultMaxSize                   int64   `json:"vaultMaxSize"`
	LastAuthoritativeInventoryTime int64   `json:"lastInventoryTime"`
	LastInventoryRequestTime       int64   `json:"lastInventoryRequestTime"`
	Entries                        []Entry `json:"entries"`
}

// NewCache returns an empty cache for vault.
func NewCache(vault string, maxSize int64) *Cache {
	return &Cache{VaultName: vault, VaultMaxSize: maxSize, Entries: []Entry{}}
}

// Used is the total size of all entries.
func (c *Cache) Used() int64 {
	var total int64
	for _, e := range c.Entries {
		total += e.Size
	}
	return total
}

// Has reports whether an entry with id exists.
func (c *Cache) Has(id string) bool {
	for _, e := range c.Entries {
		if e.ArchiveID == id {
			return true
		}
	}
	return false
}

// Add appends e unless an entry with the same id is already present.
func (c *Cache) Add(e Entry) bool {
	if c.Has(e.ArchiveID) {
		return false
	}
	c.Entries = append(c.Entries, e)
	return true
}

// Remove drops the entry with id and reports whether it was present.
func (c *Cache) Remove(id string) bool {
	for i, e := range c.Entries {
		if e.ArchiveID == id {
			c.Entries = append(c.Entries[:i], c.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Provisional counts entries not yet confirmed upstream.
func (c *Cache) Provisional() int {
	n := 0
	for _, e := range c.Entries {
		if e.Provisional {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (c *Cache) Clone() *Cache {
	out := *c
	out.Entries = append([]Entry(nil), c.Entries...)
	return &out
}

// SortOldestFirst orders entries by upload time, then archive id.
func SortOldestFirst(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UploadTime != entries[j].UploadTime {
			return entries[i].UploadTime < entries[j].UploadTime
		}
		return entries[i].ArchiveID < entries[j].ArchiveID
	})
}
