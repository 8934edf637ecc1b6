package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: t.Parallel() is intentionally omitted in this package.
// These tests share process-global environment variables; t.Setenv would race
// with any concurrent reader.

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "python3", cfg.Python.Interpreter)
	assert.Equal(t, "venv", cfg.Python.VenvDir)
	assert.Equal(t, "requirements.txt", cfg.Python.Requirements)
	assert.Equal(t, ".env", cfg.Secrets.File)
	assert.Equal(t, "GOOGLE_API_KEY", cfg.Secrets.Key)
	assert.Equal(t, "ollama", cfg.Ollama.Binary)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, []string{"llama3.2", "qwen2.5-coder"}, cfg.Ollama.Models)
	assert.Equal(t, []string{"streamlit", "run", "ui.py"}, cfg.App.Command)
	assert.Equal(t, PolicyFailFast, cfg.Bootstrap.Policy)
	assert.Equal(t, 30*time.Minute, cfg.Bootstrap.Timeout)
	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, "recai-bootstrap", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RECAI_SERVER_PORT", "9090")
	t.Setenv("RECAI_PYTHON_INTERPRETER", "python3.12")
	t.Setenv("RECAI_OLLAMA_BASE_URL", "http://ollama-host:11434")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "python3.12", cfg.Python.Interpreter)
	assert.Equal(t, "http://ollama-host:11434", cfg.Ollama.BaseURL)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recai.yaml")
	yaml := `
workspace: /srv/recaizade
python:
  venv_dir: .venv
ollama:
  models:
    - llama3.2
bootstrap:
  policy: best-effort
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/recaizade", cfg.Workspace)
	assert.Equal(t, []string{"llama3.2"}, cfg.Ollama.Models)
	assert.Equal(t, PolicyBestEffort, cfg.Bootstrap.Policy)

	// Relative paths resolve against the workspace, absolute ones pass through.
	assert.Equal(t, "/srv/recaizade/.venv", cfg.VenvPath())
	assert.Equal(t, "/srv/recaizade/requirements.txt", cfg.RequirementsPath())
	assert.Equal(t, "/srv/recaizade/.env", cfg.SecretsPath())
}

func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/path/recai.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Setenv("RECAI_BOOTSTRAP_POLICY", "retry-forever")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap.policy")
}
