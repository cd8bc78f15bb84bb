package rotation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/juju/clock"

	"github.com/flo-mic/glacierbak/internal/delta"
)

// TimestampLayout formats backup timestamps (YYYYMMDDhhmmss).
const TimestampLayout = "20060102150405"

// fullArchivePattern matches plain and encrypted full archives.
const fullArchivePattern = "*_full.tar*"

// Reason records which rule decided the backup kind.
type Reason int

const (
	ReasonNoState Reason = iota
	ReasonNoTimestamp
	ReasonChainExhausted
	ReasonNoFullArchive
	ReasonIncremental
)

func (r Reason) String() string {
	switch r {
	case ReasonNoState:
		return "no previous state"
	case ReasonNoTimestamp:
		return "no previous backup time"
	case ReasonChainExhausted:
		return "increment counter missing or at maximum"
	case ReasonNoFullArchive:
		return "no full archive in archive directory"
	case ReasonIncremental:
		return "incremental"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Full reports whether the reason forces a full backup.
func (r Reason) Full() bool { return r != ReasonIncremental }

// Decide applies the rules in order; the first match wins.
func Decide(prev *State, maxIncrements int, fullArchivePresent bool) Reason {
	switch {
	case prev == nil || prev.Metadata == nil || prev.Filelist == nil:
		return ReasonNoState
	case prev.Metadata.LastBackupTS == "" || prev.Metadata.LastBackupTS == "0":
		return ReasonNoTimestamp
	case prev.Metadata.NumIncrementals == nil || *prev.Metadata.NumIncrementals >= maxIncrements:
		return ReasonChainExhausted
	case !fullArchivePresent:
		return ReasonNoFullArchive
	default:
		return ReasonIncremental
	}
}

// ChangedPaths returns, in sorted order, every path of current that is absent
// from previous or carries a different fingerprint. Removed paths are ignored.
func ChangedPaths(current, previous delta.Snapshot) []string {
	var out []string
	for p, sum := range current {
		if old, ok := previous[p]; !ok || old != sum {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Plan is the resolver's output for one run.
type Plan struct {
	Files    []string
	Reason   Reason
	Metadata Metadata
	// MarkReady is set when this archive closes the full+incrementals set.
	MarkReady bool
}

// Full reports whether the plan is a full backup.
func (p Plan) Full() bool { return p.Reason.Full() }

// ArchiveFile is the archive file name for the plan.
func (p Plan) ArchiveFile() string { return p.Metadata.ArchiveName + ".tar.gz" }

// Resolver turns the current snapshot and the previous state into a Plan.
type Resolver struct {
	MaxIncrements int
	ArchiveDir    string
	Clock         clock.Clock
}

// Resolve decides the backup kind, the files to include and the next metadata.
func (r Resolver) Resolve(current delta.Snapshot, prev *State) (Plan, error) {
	present, err := HasFullArchive(r.ArchiveDir)
	if err != nil {
		return Plan{}, err
	}

	reason := Decide(prev, r.MaxIncrements, present)
	ts := r.Clock.Now().Format(TimestampLayout)

	plan := Plan{Reason: reason}
	if reason.Full() {
		plan.Files = current.Paths()
	} else {
		plan.Files = ChangedPaths(current, prev.Filelist)
	}
	plan.Metadata = Next(prev, reason.Full(), ts)
	plan.MarkReady = *plan.Metadata.NumIncrementals == r.MaxIncrements
	return plan, nil
}

// HasFullArchive reports whether dir holds a full archive, encrypted or not.
// A missing directory holds none.
func HasFullArchive(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("listing archive dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".partial") {
			continue
		}
		if ok, _ := filepath.Match(fullArchivePattern, e.Name()); ok {
			return true, nil
		}
	}
	return false, nil
}
