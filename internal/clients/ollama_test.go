package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sparky05514/recai/internal/config"
)

func ollamaTestConfig(baseURL string) config.OllamaConfig {
	return config.OllamaConfig{
		Binary:  "ollama",
		BaseURL: baseURL,
		Models:  []string{"llama3.2", "qwen2.5-coder"},
	}
}

func TestEnsureTool(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		r := &fakeRunner{binaries: map[string]string{"ollama": "/usr/local/bin/ollama"}}
		c := NewOllamaClient(ollamaTestConfig(""), r, NewCircuitBreaker("ollama"))

		path, err := c.EnsureTool(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "/usr/local/bin/ollama", path)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		r := &fakeRunner{}
		c := NewOllamaClient(ollamaTestConfig(""), r, NewCircuitBreaker("ollama"))

		_, err := c.EnsureTool(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrToolNotFound)
		assert.Contains(t, err.Error(), "ollama.com", "remediation text must be present")
	})
}

func TestPull(t *testing.T) {
	t.Parallel()

	t.Run("invokes the pull subcommand", func(t *testing.T) {
		t.Parallel()
		r := &fakeRunner{binaries: map[string]string{"ollama": "/usr/local/bin/ollama"}}
		c := NewOllamaClient(ollamaTestConfig(""), r, NewCircuitBreaker("ollama"))

		require.NoError(t, c.Pull(context.Background(), "llama3.2"))

		require.Len(t, r.commands, 1)
		assert.Equal(t, "/usr/local/bin/ollama", r.commands[0].Name)
		assert.Equal(t, []string{"pull", "llama3.2"}, r.commands[0].Args)
	})

	t.Run("missing tool short-circuits before any pull", func(t *testing.T) {
		t.Parallel()
		r := &fakeRunner{}
		c := NewOllamaClient(ollamaTestConfig(""), r, NewCircuitBreaker("ollama"))

		err := c.Pull(context.Background(), "llama3.2")
		assert.ErrorIs(t, err, ErrToolNotFound)
		assert.Empty(t, r.commands)
	})

	t.Run("non-zero exit is a FetchError", func(t *testing.T) {
		t.Parallel()
		r := &fakeRunner{
			binaries: map[string]string{"ollama": "/usr/local/bin/ollama"},
			exitCode: 1,
		}
		c := NewOllamaClient(ollamaTestConfig(""), r, NewCircuitBreaker("ollama"))

		err := c.Pull(context.Background(), "qwen2.5-coder")
		require.Error(t, err)

		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, "qwen2.5-coder", fetchErr.Model)
		assert.Equal(t, 1, fetchErr.ExitCode)
	})
}

func TestOllamaProbe(t *testing.T) {
	t.Parallel()

	t.Run("daemon healthy", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "/api/tags", req.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := NewOllamaClient(ollamaTestConfig(srv.URL), &fakeRunner{}, NewCircuitBreaker("ollama"))

		probe := c.Probe(context.Background())
		assert.True(t, probe.OK)
		assert.Equal(t, "ollama", probe.Name)
	})

	t.Run("daemon erroring", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewOllamaClient(ollamaTestConfig(srv.URL), &fakeRunner{}, NewCircuitBreaker("ollama"))

		probe := c.Probe(context.Background())
		assert.False(t, probe.OK)
		assert.Contains(t, probe.Error, "500")
	})

	t.Run("daemon unreachable", func(t *testing.T) {
		t.Parallel()
		// Reserved port with nothing listening.
		c := NewOllamaClient(ollamaTestConfig("http://127.0.0.1:1"), &fakeRunner{}, NewCircuitBreaker("ollama"))

		probe := c.Probe(context.Background())
		assert.False(t, probe.OK)
		assert.NotEmpty(t, probe.Error)
	})
}
