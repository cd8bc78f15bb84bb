// Package rotation decides between full and incremental backups and tracks
// how far the current incremental chain has progressed.
package rotation

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/flo-mic/glacierbak/internal/delta"
	"github.com/flo-mic/glacierbak/internal/statefile"
)

// Metadata describes the last backup produced by the local stage.
// NumIncrementals is nil when the field was never recorded.
type Metadata struct {
	LastBackupTS    string `json:"lastBackupTS,omitempty"`
	NumIncrementals *int   `json:"numIncrementals,omitempty"`
	ArchiveName     string `json:"archiveName,omitempty"`
}

// State is the document persisted between local runs.
type State struct {
	Metadata *Metadata     `json:"metadata,omitempty"`
	// Filelist is nil only when the key was absent; an empty scan is recorded.
	Filelist delta.Snapshot `json:"filelist"`
}

// LoadState reads the previous state. A missing or corrupt file yields nil,
// which the resolver treats as "full backup required".
func LoadState(path string, log *slog.Logger) (*State, error) {
	var st State
	found, err := statefile.Load(path, &st)
	if errors.Is(err, statefile.ErrCorrupt) {
		log.Warn("previous state is corrupt, assuming full backup", "path", path, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading backup state: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &st, nil
}

// SaveState atomically replaces the state file.
func SaveState(path string, st *State) error {
	if err := statefile.Save(path, st); err != nil {
		return fmt.Errorf("saving backup state: %w", err)
	}
	return nil
}
