package timer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func units() []Unit {
	return []Unit{
		{Stage: "local", Binary: "/usr/local/bin/glacierbak", ConfigPath: "/etc/glacierbak/config.yaml", OnCalendar: DefaultLocalCalendar},
		{Stage: "remote", Binary: "/usr/local/bin/glacierbak", ConfigPath: "/etc/glacierbak/config.yaml", OnCalendar: DefaultRemoteCalendar, User: "backup"},
	}
}

func stubSystemctl(t *testing.T, fail string) *[]string {
	t.Helper()
	var calls []string
	orig := systemctl
	systemctl = func(_ context.Context, _ *slog.Logger, args ...string) error {
		call := strings.Join(args, " ")
		calls = append(calls, call)
		if call == fail {
			return errors.New("boom")
		}
		return nil
	}
	t.Cleanup(func() { systemctl = orig })
	return &calls
}

func TestUnitRendering(t *testing.T) {
	local, remote := units()[0], units()[1]

	svc := local.Service()
	assert.Contains(t, svc, "ExecStart=/usr/local/bin/glacierbak --config /etc/glacierbak/config.yaml local\n")
	assert.Contains(t, svc, "Type=oneshot")
	assert.Contains(t, svc, "IOSchedulingClass=idle")
	assert.NotContains(t, svc, "User=")

	rsvc := remote.Service()
	assert.Contains(t, rsvc, "After=network-online.target")
	assert.Contains(t, rsvc, "User=backup")

	tm := remote.Timer()
	assert.Contains(t, tm, "OnCalendar=*-*-* 04:00:00")
	assert.Contains(t, tm, "Unit=glacierbak-remote.service")
	assert.Contains(t, tm, "Persistent=true")
}

func TestUnitValidate(t *testing.T) {
	u := units()[0]
	require.NoError(t, u.Validate())

	bad := u
	bad.Stage = "both"
	assert.Error(t, bad.Validate())

	bad = u
	bad.Binary = "glacierbak"
	assert.Error(t, bad.Validate())

	bad = u
	bad.OnCalendar = ""
	assert.Error(t, bad.Validate())
}

func TestInstall(t *testing.T) {
	calls := stubSystemctl(t, "")
	dir := t.TempDir()
	in := &Installer{Dir: dir, Enable: true, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	written, err := in.Install(context.Background(), units())
	require.NoError(t, err)
	sort.Strings(written)
	assert.Equal(t, []string{
		filepath.Join(dir, "glacierbak-local.service"),
		filepath.Join(dir, "glacierbak-local.timer"),
		filepath.Join(dir, "glacierbak-remote.service"),
		filepath.Join(dir, "glacierbak-remote.timer"),
	}, written)
	assert.Equal(t, []string{
		"daemon-reload",
		"enable --now glacierbak-local.timer",
		"enable --now glacierbak-remote.timer",
	}, *calls)

	data, err := os.ReadFile(filepath.Join(dir, "glacierbak-local.timer"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "WantedBy=timers.target")
}

func TestInstall_NoEnable(t *testing.T) {
	calls := stubSystemctl(t, "")
	in := &Installer{Dir: t.TempDir(), Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	_, err := in.Install(context.Background(), units())
	require.NoError(t, err)
	assert.Equal(t, []string{"daemon-reload"}, *calls)
}

func TestInstall_SystemctlFailure(t *testing.T) {
	stubSystemctl(t, "daemon-reload")
	in := &Installer{Dir: t.TempDir(), Enable: true, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	_, err := in.Install(context.Background(), units())
	assert.Error(t, err)
}
