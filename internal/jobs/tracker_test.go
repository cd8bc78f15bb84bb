package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flo-mic/glacierbak/internal/inventory"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeClient struct {
	status    map[string]Status
	statusErr map[string]error
	output    map[string]string
	outputErr map[string]error
	queried   []string
}

func (f *fakeClient) JobStatus(_ context.Context, _, id string) (Status, string, error) {
	f.queried = append(f.queried, id)
	if err := f.statusErr[id]; err != nil {
		return StatusPending, "", err
	}
	return f.status[id], "msg-" + id, nil
}

func (f *fakeClient) JobOutput(_ context.Context, _, id string) ([]byte, error) {
	if err := f.outputErr[id]; err != nil {
		return nil, err
	}
	return []byte(f.output[id]), nil
}

const inventoryDoc = `{"VaultARN":"arn","InventoryDate":"1970-01-01T00:01:40Z","ArchiveList":[
 {"ArchiveId":"auth","ArchiveDescription":"d","CreationDate":"1970-01-01T00:00:50Z","Size":7,"SHA256TreeHash":"x"}]}`

func TestPoll_Transitions(t *testing.T) {
	client := &fakeClient{
		status: map[string]Status{
			"ok":      StatusSucceeded,
			"bad":     StatusFailed,
			"running": StatusPending,
		},
		statusErr: map[string]error{"flaky": errors.New("throttled")},
		output:    map[string]string{"ok": inventoryDoc},
	}
	snapPath := filepath.Join(t.TempDir(), "inventory.json")
	tr := &Tracker{Client: client, SnapshotPath: snapPath, Log: discard()}

	cache := inventory.NewCache("v", 1000)
	cache.Entries = []inventory.Entry{
		{ArchiveID: "prov", UploadTime: 150, Size: 3, Provisional: true},
		{ArchiveID: "gone", UploadTime: 60, Size: 4},
	}
	list := []Job{
		{VaultID: "v", JobID: "flaky"},
		{VaultID: "v", JobID: "ok"},
		{VaultID: "v", JobID: "bad"},
		{VaultID: "v", JobID: "running"},
	}

	remaining, out, res, err := tr.Poll(context.Background(), list, cache)
	require.NoError(t, err)

	assert.Equal(t, []string{"flaky", "ok", "bad", "running"}, client.queried, "a failed query does not stop the cycle")
	assert.Equal(t, []Job{{VaultID: "v", JobID: "flaky"}, {VaultID: "v", JobID: "running"}}, remaining)
	assert.Equal(t, PollResult{Succeeded: 1, Failed: 1, Pending: 2}, res)

	assert.Equal(t, int64(100), out.LastAuthoritativeInventoryTime)
	assert.True(t, out.Has("auth"))
	assert.True(t, out.Has("prov"))
	assert.False(t, out.Has("gone"))

	saved, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	assert.JSONEq(t, inventoryDoc, string(saved))
}

func TestPoll_OutputErrorKeepsJob(t *testing.T) {
	client := &fakeClient{
		status:    map[string]Status{"ok": StatusSucceeded},
		outputErr: map[string]error{"ok": errors.New("timeout")},
	}
	tr := &Tracker{Client: client, SnapshotPath: filepath.Join(t.TempDir(), "inv.json"), Log: discard()}
	cache := inventory.NewCache("v", 1)

	remaining, out, _, err := tr.Poll(context.Background(), []Job{{VaultID: "v", JobID: "ok"}}, cache)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
	assert.Same(t, cache, out)
}

func TestPoll_InvalidOutputDropsJob(t *testing.T) {
	client := &fakeClient{
		status: map[string]Status{"ok": StatusSucceeded},
		output: map[string]string{"ok": "not json"},
	}
	snapPath := filepath.Join(t.TempDir(), "inv.json")
	tr := &Tracker{Client: client, SnapshotPath: snapPath, Log: discard()}

	remaining, _, res, err := tr.Poll(context.Background(), []Job{{VaultID: "v", JobID: "ok"}}, inventory.NewCache("v", 1))
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Equal(t, PollResult{Failed: 1}, res)
	assert.NoFileExists(t, snapPath)
}

func TestPoll_StaleSnapshotLeavesSavedOneAlone(t *testing.T) {
	client := &fakeClient{
		status: map[string]Status{"old": StatusSucceeded},
		output: map[string]string{"old": inventoryDoc},
	}
	snapPath := filepath.Join(t.TempDir(), "inv.json")
	newer := `{"InventoryDate":"1970-01-01T00:05:00Z"}`
	require.NoError(t, os.WriteFile(snapPath, []byte(newer), 0644))
	tr := &Tracker{Client: client, SnapshotPath: snapPath, Log: discard()}

	cache := inventory.NewCache("v", 1000)
	cache.LastAuthoritativeInventoryTime = 300
	remaining, out, res, err := tr.Poll(context.Background(), []Job{{VaultID: "v", JobID: "old"}}, cache)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, int64(300), out.LastAuthoritativeInventoryTime)
	assert.False(t, out.Has("auth"))

	saved, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	assert.Equal(t, newer, string(saved), "snapshot on disk matches the cached cut-off")
}

func TestPoll_SnapshotPersistFailureIsFatal(t *testing.T) {
	client := &fakeClient{
		status: map[string]Status{"a": StatusSucceeded, "b": StatusPending},
		output: map[string]string{"a": inventoryDoc},
	}
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	tr := &Tracker{Client: client, SnapshotPath: filepath.Join(blocker, "inv.json"), Log: discard()}

	list := []Job{{VaultID: "v", JobID: "a"}, {VaultID: "v", JobID: "b"}}
	remaining, _, _, err := tr.Poll(context.Background(), list, inventory.NewCache("v", 1))
	require.Error(t, err)
	assert.Equal(t, list, remaining, "nothing is dropped when the snapshot cannot be saved")
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.json")

	list, err := Load(path, discard())
	require.NoError(t, err)
	assert.Empty(t, list)

	in := []Job{{VaultID: "v", JobID: "j1", RequestedAt: 10}}
	require.NoError(t, Save(path, in))
	list, err = Load(path, discard())
	require.NoError(t, err)
	assert.Equal(t, in, list)

	require.NoError(t, os.WriteFile(path, []byte(`{"jobId": 1}`), 0644))
	list, err = Load(path, discard())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Succeeded", StatusSucceeded.String())
	assert.Equal(t, "Failed", StatusFailed.String())
	assert.Equal(t, "Pending", StatusPending.String())
}
