package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/flo-mic/glacierbak/internal/statefile"
)

// LoadCache reads the cache file. A missing or corrupt file yields an empty
// cache for vault so the run can make progress. The configured size limit
// always wins over the stored one.
func LoadCache(path, vault string, maxSize int64, log *slog.Logger) (*Cache, error) {
	c := NewCache(vault, maxSize)
	found, err := statefile.Load(path, c)
	if errors.Is(err, statefile.ErrCorrupt) {
		log.Warn("inventory cache is corrupt, starting empty", "path", path, "error", err)
		return NewCache(vault, maxSize), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading inventory cache: %w", err)
	}
	if !found {
		return c, nil
	}
	if c.VaultName != vault {
		log.Warn("inventory cache belongs to another vault, starting empty", "cached", c.VaultName, "vault", vault)
		return NewCache(vault, maxSize), nil
	}
	c.VaultMaxSize = maxSize
	if c.Entries == nil {
		c.Entries = []Entry{}
	}
	return c, nil
}

// SaveCache atomically writes the cache with entries ordered by id.
func SaveCache(path string, c *Cache) error {
	out := c.Clone()
	sort.Slice(out.Entries, func(i, j int) bool { return out.Entries[i].ArchiveID < out.Entries[j].ArchiveID })
	if err := statefile.Save(path, out); err != nil {
		return fmt.Errorf("saving inventory cache: %w", err)
	}
	return nil
}
