// Package jobs tracks asynchronous inventory-retrieval jobs across runs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flo-mic/glacierbak/internal/statefile"
)

// Job is an inventory-retrieval request accepted by the provider.
type Job struct {
	VaultID     string `json:"vaultId"`
	JobID       string `json:"jobId"`
	RequestedAt int64  `json:"requestedAt"` // unix seconds
}

// Status is the provider-side state of a job.
type Status int

const (
	StatusPending Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "Succeeded"
	case StatusFailed:
		return "Failed"
	default:
		return "Pending"
	}
}

// Client is the part of the provider API the tracker needs.
type Client interface {
	JobStatus(ctx context.Context, vault, jobID string) (Status, string, error)
	JobOutput(ctx context.Context, vault, jobID string) ([]byte, error)
}

// Requester starts a new inventory-retrieval job.
type Requester interface {
	RequestInventory(ctx context.Context, vault string) (string, error)
}

// Load reads the outstanding job list. Missing or corrupt files yield an empty list.
func Load(path string, log *slog.Logger) ([]Job, error) {
	var list []Job
	_, err := statefile.Load(path, &list)
	if errors.Is(err, statefile.ErrCorrupt) {
		log.Warn("outstanding job list is corrupt, starting empty", "path", path, "error", err)
		return []Job{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading outstanding jobs: %w", err)
	}
	if list == nil {
		list = []Job{}
	}
	return list, nil
}

// Save atomically writes the outstanding job list.
func Save(path string, list []Job) error {
	if list == nil {
		list = []Job{}
	}
	if err := statefile.Save(path, list); err != nil {
		return fmt.Errorf("saving outstanding jobs: %w", err)
	}
	return nil
}
