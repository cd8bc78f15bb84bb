package hook

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRun(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	require.NoError(t, Run(context.Background(), "pre", "touch "+marker, discard()))
	assert.FileExists(t, marker)
}

func TestRun_Empty(t *testing.T) {
	assert.NoError(t, Run(context.Background(), "pre", "  ", discard()))
}

func TestRun_Failure(t *testing.T) {
	err := Run(context.Background(), "pre", "echo dump failed >&2; exit 3", discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pre hook")
}

func TestRun_WorkingDirIsRoot(t *testing.T) {
	out := filepath.Join(t.TempDir(), "pwd")
	require.NoError(t, Run(context.Background(), "post", "pwd > "+out, discard()))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "/\n", string(data))
}
