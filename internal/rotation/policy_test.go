package rotation

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMarker_Idempotent(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, MarkerPresent(dir))

	created, err := WriteMarker(dir, "20240301120000")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, MarkerPresent(dir))

	created, err = WriteMarker(dir, "20240302120000")
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(MarkerPath(dir))
	require.NoError(t, err)
	assert.Equal(t, "20240301120000", string(data), "first timestamp is kept")
}

func TestNext(t *testing.T) {
	full := Next(nil, true, "20240301120000")
	assert.Equal(t, 0, *full.NumIncrementals)
	assert.Equal(t, "20240301120000_full", full.ArchiveName)

	prev := &State{Metadata: &Metadata{LastBackupTS: "20240301120000", NumIncrementals: intp(4)}}
	incr := Next(prev, false, "20240302120000")
	assert.Equal(t, 5, *incr.NumIncrementals)
	assert.Equal(t, "20240302120000_incr_from_20240301120000", incr.ArchiveName)
	assert.Equal(t, "20240302120000", incr.LastBackupTS)
}
