package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Sparky05514/recai/internal/config"
	"github.com/Sparky05514/recai/internal/orchestrator"
	"github.com/Sparky05514/recai/internal/shell"
)

const ollamaProbeName = "ollama"

// OllamaClient wraps the ollama binary (model pulls) and its local HTTP API
// (health probes).
type OllamaClient struct {
	binary  string
	baseURL string

	runner shell.Runner
	cb     *gobreaker.CircuitBreaker
	http   *http.Client
}

// NewOllamaClient constructs an OllamaClient. Neither the binary nor the
// daemon is contacted at construction time.
func NewOllamaClient(cfg config.OllamaConfig, runner shell.Runner, cb *gobreaker.CircuitBreaker) *OllamaClient {
	return &OllamaClient{
		binary:  cfg.Binary,
		baseURL: cfg.BaseURL,
		runner:  runner,
		cb:      cb,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// EnsureTool resolves the ollama binary against the host PATH and returns its
// absolute path. A missing binary is a terminal precondition failure: no pull
// is ever attempted after ErrToolNotFound.
func (c *OllamaClient) EnsureTool(ctx context.Context) (string, error) {
	path, err := c.runner.LookPath(c.binary, os.Getenv("PATH"))
	if err != nil {
		return "", fmt.Errorf("%w: %s is not on PATH — install it from https://ollama.com/download and re-run",
			ErrToolNotFound, c.binary)
	}
	return path, nil
}

// Pull fetches one named model via `ollama pull <model>`. The pull is
// idempotent on the tool's side; an already-present model exits zero quickly.
// A non-zero exit is returned as a *FetchError carrying the exit code. The
// call is wrapped in the circuit breaker so repeated registry failures trip
// it under serve mode's re-triggered bootstraps.
func (c *OllamaClient) Pull(ctx context.Context, model string) error {
	tool, err := c.EnsureTool(ctx)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "pulling model", "model", model)

	_, err = c.cb.Execute(func() (any, error) {
		res, err := c.runner.Run(ctx, shell.Command{
			Name:   tool,
			Args:   []string{"pull", model},
			Env:    shell.BaseEnv(""),
			Stream: true,
		})
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, &FetchError{Model: model, ExitCode: res.ExitCode}
		}
		return nil, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return fmt.Errorf("circuit open: %w", err)
		}
		return err
	}
	return nil
}

// Probe checks that the ollama daemon answers on its HTTP API. A reachable
// daemon with no models yet is healthy — model presence is the bootstrap's
// job, not the probe's.
func (c *OllamaClient) Probe(ctx context.Context) orchestrator.ProbeResult {
	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("ollama daemon unreachable: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("ollama daemon returned status %d", resp.StatusCode)
		}
		return nil, nil
	})

	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		if errors.Is(err, gobreaker.ErrOpenState) {
			errMsg = "circuit open"
		}
		return orchestrator.ProbeResult{
			Name:      ollamaProbeName,
			OK:        false,
			LatencyMs: latency,
			Error:     errMsg,
		}
	}

	return orchestrator.ProbeResult{
		Name:      ollamaProbeName,
		OK:        true,
		LatencyMs: latency,
	}
}
