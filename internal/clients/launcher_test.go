package clients

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sparky05514/recai/internal/config"
)

func TestLaunch_ExecsResolvedEntryPoint(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Workspace: ".",
		App:       config.AppConfig{Command: []string{"streamlit", "run", "ui.py"}},
	}
	venvBin := filepath.Join(t.TempDir(), "venv", "bin")
	r := &fakeRunner{binaries: map[string]string{"streamlit": filepath.Join(venvBin, "streamlit")}}

	l := NewAppLauncher(cfg, venvBin, r)

	var gotArgv0 string
	var gotArgv, gotEnv []string
	l.execve = func(argv0 string, argv []string, envv []string) error {
		gotArgv0 = argv0
		gotArgv = argv
		gotEnv = envv
		return nil
	}

	require.NoError(t, l.Launch(context.Background()))

	assert.Equal(t, filepath.Join(venvBin, "streamlit"), gotArgv0)
	assert.Equal(t, []string{"streamlit", "run", "ui.py"}, gotArgv)

	var pathVar string
	for _, kv := range gotEnv {
		if len(kv) > 5 && kv[:5] == "PATH=" {
			pathVar = kv
		}
	}
	assert.Contains(t, pathVar, venvBin, "venv bin must be on the handed-off PATH")
}

func TestLaunch_UnresolvableEntryPoint(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Workspace: ".",
		App:       config.AppConfig{Command: []string{"streamlit", "run", "ui.py"}},
	}
	l := NewAppLauncher(cfg, "/nonexistent/venv/bin", &fakeRunner{})

	execCalled := false
	l.execve = func(string, []string, []string) error {
		execCalled = true
		return nil
	}

	err := l.Launch(context.Background())
	require.Error(t, err)
	assert.False(t, execCalled)
}
