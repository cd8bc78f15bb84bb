package rotation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MarkerName is the file that tells the remote stage a set is closed.
const MarkerName = "backup_set_complete.flag"

// Next emits the metadata of the archive about to be produced.
// prev is only consulted for incrementals, where it is known to be complete.
func Next(prev *State, full bool, ts string) Metadata {
	if full {
		n := 0
		return Metadata{
			LastBackupTS:    ts,
			NumIncrementals: &n,
			ArchiveName:     ts + "_full",
		}
	}
	n := *prev.Metadata.NumIncrementals + 1
	return Metadata{
		LastBackupTS:    ts,
		NumIncrementals: &n,
		ArchiveName:     fmt.Sprintf("%s_incr_from_%s", ts, prev.Metadata.LastBackupTS),
	}
}

// MarkerPath returns the marker location inside dir.
func MarkerPath(dir string) string {
	return filepath.Join(dir, MarkerName)
}

// WriteMarker creates the ready-for-upload marker holding ts.
// An existing marker is left untouched and created is false.
func WriteMarker(dir, ts string) (created bool, err error) {
	f, err := os.OpenFile(MarkerPath(dir), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating marker: %w", err)
	}
	if _, err := f.WriteString(ts); err != nil {
		f.Close()
		return false, fmt.Errorf("writing marker: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("closing marker: %w", err)
	}
	return true, nil
}

// MarkerPresent reports whether dir holds the marker.
func MarkerPresent(dir string) bool {
	_, err := os.Stat(MarkerPath(dir))
	return err == nil
}
