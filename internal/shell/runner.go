// Package shell runs external processes with an explicit, allowlisted
// environment. Every subprocess the bootstrapper spawns goes through this
// package; nothing relies on ambient process state such as an "activated"
// virtualenv.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

// Command describes a single external process invocation.
type Command struct {
	// Name is the executable name or path. Relative names are resolved by
	// the OS against the PATH entry of Env, not the host PATH.
	Name string
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is the complete environment for the process. The environment
	// starts empty; only these variables are visible to the child.
	Env map[string]string

	// Stream wires the child's stdout/stderr to the parent's instead of
	// capturing them. Used for long operations (pip install, model pulls)
	// where the operator wants live progress.
	Stream bool
}

// Result holds the outcome of a completed process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes commands. The concrete implementation is ExecRunner;
// tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
	LookPath(name, pathList string) (string, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// NewRunner returns the real process runner.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd and waits for it to exit. A non-zero exit code is not an
// error; it is reported through Result.ExitCode. An error is returned only
// when the process could not be started or the context was cancelled.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Name == "" {
		return nil, fmt.Errorf("command name is empty")
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = Flatten(cmd.Env)

	// Own process group so cancellation kills the whole tree, not just the
	// direct child.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	if cmd.Stream {
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cmd.Name, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		if c.Process != nil {
			syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return nil, fmt.Errorf("%s cancelled: %w", cmd.Name, ctx.Err())
	case err = <-done:
	}

	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("running %s: %w", cmd.Name, err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

// LookPath resolves name against an explicit colon-separated path list,
// deliberately ignoring the host PATH. It returns the absolute path of the
// first executable match or exec.ErrNotFound.
func (r *ExecRunner) LookPath(name, pathList string) (string, error) {
	if strings.Contains(name, string(os.PathSeparator)) {
		if isExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
	}

	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}

// Flatten converts the allowlist map to the KEY=VALUE slice form expected
// by os/exec. A nil or empty map yields an empty (not nil) environment so the
// child inherits nothing from the host.
func Flatten(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for key, value := range env {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}
	return result
}

// BaseEnv builds the explicit environment passed to every bootstrap
// subprocess: the host PATH with the venv bin dir prepended when venvBin is
// non-empty, plus HOME and VIRTUAL_ENV so pip and streamlit resolve their
// caches and prefix correctly.
func BaseEnv(venvBin string) map[string]string {
	path := os.Getenv("PATH")
	env := map[string]string{
		"PATH": path,
		"HOME": os.Getenv("HOME"),
	}
	if venvBin != "" {
		env["PATH"] = venvBin + string(os.PathListSeparator) + path
		env["VIRTUAL_ENV"] = filepath.Dir(venvBin)
	}
	return env
}
