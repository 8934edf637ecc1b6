package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Sparky05514/recai/internal/config"
	"github.com/Sparky05514/recai/internal/orchestrator"
	"github.com/Sparky05514/recai/internal/shell"
)

const pythonProbeName = "python"

// PythonClient provisions the Python side of the application: interpreter
// discovery, virtualenv creation, and pip requirements installation. All
// subprocesses run with an explicit environment built from the venv bin dir;
// nothing depends on an "activated" shell.
type PythonClient struct {
	interpreter  string
	workspace    string
	venvDir      string
	requirements string

	runner shell.Runner
	cb     *gobreaker.CircuitBreaker
}

// NewPythonClient constructs a PythonClient. No subprocess is run at
// construction time.
func NewPythonClient(cfg *config.Config, runner shell.Runner, cb *gobreaker.CircuitBreaker) *PythonClient {
	return &PythonClient{
		interpreter:  cfg.Python.Interpreter,
		workspace:    cfg.Workspace,
		venvDir:      cfg.VenvPath(),
		requirements: cfg.RequirementsPath(),
		runner:       runner,
		cb:           cb,
	}
}

// VenvBin returns the venv's bin directory; it is what gets prepended to the
// PATH of every subsequent subprocess.
func (c *PythonClient) VenvBin() string {
	return filepath.Join(c.venvDir, "bin")
}

func (c *PythonClient) venvPython() string {
	return filepath.Join(c.VenvBin(), "python")
}

// EnsureInterpreter resolves the configured interpreter against the host PATH
// and returns its absolute path. A missing interpreter is a terminal
// precondition failure: ErrInterpreterNotFound, wrapped with remediation text.
func (c *PythonClient) EnsureInterpreter(ctx context.Context) (string, error) {
	path, err := c.runner.LookPath(c.interpreter, os.Getenv("PATH"))
	if err != nil {
		return "", fmt.Errorf("%w: %s is not on PATH — install Python 3 from https://www.python.org/downloads/ and re-run",
			ErrInterpreterNotFound, c.interpreter)
	}
	return path, nil
}

// EnsureVenv creates the virtualenv if it does not exist and reports whether
// it was created. An existing venv is left untouched, so the call is
// idempotent. A partially created venv from an earlier failed run is reused
// as-is; `python -m venv` repairs it.
func (c *PythonClient) EnsureVenv(ctx context.Context) (bool, error) {
	if _, err := os.Stat(c.venvPython()); err == nil {
		slog.InfoContext(ctx, "virtualenv exists, reusing", "dir", c.venvDir)
		return false, nil
	}

	interpreter, err := c.EnsureInterpreter(ctx)
	if err != nil {
		return false, err
	}

	slog.InfoContext(ctx, "creating virtualenv", "dir", c.venvDir)

	res, err := c.runner.Run(ctx, shell.Command{
		Name: interpreter,
		Args: []string{"-m", "venv", c.venvDir},
		Dir:  c.workspace,
		Env:  shell.BaseEnv(""),
	})
	if err != nil {
		return false, err
	}
	if res.ExitCode != 0 {
		return false, fmt.Errorf("creating virtualenv %s: exit code %d: %s",
			c.venvDir, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return true, nil
}

// InstallRequirements installs the manifest into the venv via pip. A missing
// or effectively empty manifest (only blank lines and comments) succeeds
// without invoking pip at all. A non-zero pip exit is returned as an
// *InstallError carrying the exit code; there is no retry.
func (c *PythonClient) InstallRequirements(ctx context.Context) error {
	empty, err := manifestIsEmpty(c.requirements)
	if err != nil {
		return err
	}
	if empty {
		slog.InfoContext(ctx, "requirements manifest empty, nothing to install", "manifest", c.requirements)
		return nil
	}

	slog.InfoContext(ctx, "installing requirements", "manifest", c.requirements)

	res, err := c.runner.Run(ctx, shell.Command{
		Name:   c.venvPython(),
		Args:   []string{"-m", "pip", "install", "-r", c.requirements},
		Dir:    c.workspace,
		Env:    shell.BaseEnv(c.VenvBin()),
		Stream: true,
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return &InstallError{Manifest: c.requirements, ExitCode: res.ExitCode}
	}
	return nil
}

// Probe runs the venv's python with --version and reports the result. Wrapped
// in the circuit breaker so a broken venv trips after three consecutive
// failures instead of being re-exec'd on every health poll.
func (c *PythonClient) Probe(ctx context.Context) orchestrator.ProbeResult {
	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		res, err := c.runner.Run(ctx, shell.Command{
			Name: c.venvPython(),
			Args: []string{"--version"},
			Env:  shell.BaseEnv(c.VenvBin()),
		})
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, fmt.Errorf("python --version: exit code %d", res.ExitCode)
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
			Name:      pythonProbeName,
			OK:        false,
			LatencyMs: latency,
			Error:     errMsg,
		}
	}

	return orchestrator.ProbeResult{
		Name:      pythonProbeName,
		OK:        true,
		LatencyMs: latency,
	}
}

// manifestIsEmpty reports whether the requirements file has no effective
// package specifiers. A missing file counts as empty.
func manifestIsEmpty(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return false, nil
		}
	}
	return true, nil
}
