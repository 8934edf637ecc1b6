package clients

import (
	"errors"
	"fmt"
)

// ErrInterpreterNotFound indicates the configured Python interpreter is not
// resolvable on the host PATH. The bootstrap halts before touching the venv.
var ErrInterpreterNotFound = errors.New("python interpreter not found")

// ErrToolNotFound indicates the external model tool (ollama) is not
// resolvable on the host PATH. No model is pulled when this is returned.
var ErrToolNotFound = errors.New("external tool not found")

// InstallError reports a non-zero exit from the package installer. The exit
// code is propagated as the process exit code by the CLI.
type InstallError struct {
	Manifest string
	ExitCode int
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("pip install -r %s failed with exit code %d", e.Manifest, e.ExitCode)
}

// FetchError reports a non-zero exit from a model pull.
type FetchError struct {
	Model    string
	ExitCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("pulling model %s failed with exit code %d", e.Model, e.ExitCode)
}
