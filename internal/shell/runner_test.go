package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()

	r := NewRunner()

	res, err := r.Run(context.Background(), Command{
		Name: "/bin/sh",
		Args: []string{"-c", "echo out; echo err 1>&2; exit 3"},
	})
	require.NoError(t, err)

	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
	assert.Equal(t, 3, res.ExitCode)
}

func TestRun_EnvIsAllowlist(t *testing.T) {
	t.Parallel()

	r := NewRunner()

	// HOME is set on the host but not declared, so the child must not see it.
	res, err := r.Run(context.Background(), Command{
		Name: "/bin/sh",
		Args: []string{"-c", `printf '%s' "DECLARED=$DECLARED HOME=$HOME"`},
		Env:  map[string]string{"DECLARED": "yes"},
	})
	require.NoError(t, err)
	assert.Equal(t, "DECLARED=yes HOME=", string(res.Stdout))
}

func TestRun_Cancellation(t *testing.T) {
	t.Parallel()

	r := NewRunner()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, Command{
		Name: "/bin/sh",
		Args: []string{"-c", "sleep 30"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_EmptyName(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	_, err := r.Run(context.Background(), Command{})
	assert.Error(t, err)
}

func TestLookPath_ExplicitPathOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bin := filepath.Join(dir, "sometool")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	r := NewRunner()

	got, err := r.LookPath("sometool", dir)
	require.NoError(t, err)
	assert.Equal(t, bin, got)

	// Not resolvable against an unrelated path list, even though it exists.
	_, err = r.LookPath("sometool", t.TempDir())
	assert.Error(t, err)
}

func TestLookPath_SkipsNonExecutable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plainfile"), []byte("x"), 0o644))

	r := NewRunner()
	_, err := r.LookPath("plainfile", dir)
	assert.Error(t, err)
}

func TestBaseEnv_PrependsVenvBin(t *testing.T) {
	env := BaseEnv("/srv/app/venv/bin")

	assert.Equal(t, "/srv/app/venv", env["VIRTUAL_ENV"])
	assert.True(t, strings.HasPrefix(env["PATH"], "/srv/app/venv/bin"),
		"venv bin must shadow the host PATH")
}
