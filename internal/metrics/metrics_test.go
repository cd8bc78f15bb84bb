package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "textfile")
	m := NewLocal()
	m.Files.Set(3)
	m.Full.Set(1)
	require.NoError(t, m.Write(dir))

	data, err := os.ReadFile(filepath.Join(dir, "glacierbak_local.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "glacierbak_local_archived_files 3")
	assert.Contains(t, string(data), "glacierbak_local_full_backup 1")
}

func TestRemoteWrite(t *testing.T) {
	dir := t.TempDir()
	m := NewRemote()
	m.OutstandingJobs.Set(2)
	require.NoError(t, m.Write(dir))

	data, err := os.ReadFile(filepath.Join(dir, "glacierbak_remote.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "glacierbak_remote_outstanding_jobs 2")
}

func TestWrite_Disabled(t *testing.T) {
	assert.NoError(t, NewLocal().Write(""))
	assert.NoError(t, NewRemote().Write(""))
}
