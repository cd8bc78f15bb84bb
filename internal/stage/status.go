package stage

import (
	"log/slog"
	"os"
	"sort"

	"github.com/flo-mic/glacierbak/internal/config"
	"github.com/flo-mic/glacierbak/internal/inventory"
	"github.com/flo-mic/glacierbak/internal/jobs"
	"github.com/flo-mic/glacierbak/internal/rotation"
)

// StatusReport is a read-only view of both stages' persisted state.
type StatusReport struct {
	Local       *rotation.State
	LocalFiles  []string
	SetComplete bool
	Vault       string
	Cache       *inventory.Cache
	Capacity    inventory.Capacity
	Jobs        []jobs.Job
}

// Status gathers the persisted state without touching the vault or writing
// anything. The remote part is left empty when no vault is configured.
func Status(cfg *config.Config, log *slog.Logger) (*StatusReport, error) {
	st, err := rotation.LoadState(cfg.Local.StateFile, log)
	if err != nil {
		return nil, err
	}
	rep := &StatusReport{
		Local:       st,
		SetComplete: rotation.MarkerPresent(cfg.Local.ArchiveDir),
	}

	entries, err := os.ReadDir(cfg.Local.ArchiveDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, e := range entries {
		if e.Type().IsRegular() && e.Name() != rotation.MarkerName {
			rep.LocalFiles = append(rep.LocalFiles, e.Name())
		}
	}
	sort.Strings(rep.LocalFiles)

	if cfg.Remote.Vault == "" {
		return rep, nil
	}
	rep.Vault = cfg.Remote.Vault
	if rep.Cache, err = inventory.LoadCache(cfg.Remote.CacheFile, cfg.Remote.Vault, cfg.Remote.VaultSizeLimit, log); err != nil {
		return nil, err
	}
	rep.Capacity = inventory.PlanCapacity(rep.Cache)
	if rep.Jobs, err = jobs.Load(cfg.Remote.JobsFile, log); err != nil {
		return nil, err
	}
	return rep, nil
}
