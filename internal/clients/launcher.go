package clients

import (
	"context"
	"fmt"
	"log/slog"
	"syscall"

	"github.com/Sparky05514/recai/internal/config"
	"github.com/Sparky05514/recai/internal/shell"
)

// AppLauncher hands the process over to the downstream application. It is the
// only Launcher implementation; the orchestrator depends on the interface so
// the application component stays swappable.
type AppLauncher struct {
	command   []string
	workspace string
	venvBin   string

	runner shell.Runner
	// execve is swapped out in tests; syscall.Exec never returns on success.
	execve func(argv0 string, argv []string, envv []string) error
}

// NewAppLauncher constructs a launcher for the configured app command,
// resolving its binary through the venv bin dir.
func NewAppLauncher(cfg *config.Config, venvBin string, runner shell.Runner) *AppLauncher {
	return &AppLauncher{
		command:   cfg.App.Command,
		workspace: cfg.Workspace,
		venvBin:   venvBin,
		runner:    runner,
		execve:    syscall.Exec,
	}
}

// Launch replaces the current process with the application entry point. The
// orchestrator's responsibility ends here: no monitoring, no restart. On
// success this call does not return.
func (l *AppLauncher) Launch(ctx context.Context) error {
	env := shell.BaseEnv(l.venvBin)

	bin, err := l.runner.LookPath(l.command[0], env["PATH"])
	if err != nil {
		return fmt.Errorf("resolving app entry point %s: %w", l.command[0], err)
	}

	if l.workspace != "" && l.workspace != "." {
		if err := syscall.Chdir(l.workspace); err != nil {
			return fmt.Errorf("chdir %s: %w", l.workspace, err)
		}
	}

	slog.InfoContext(ctx, "handing off to application", "bin", bin, "argv", l.command)

	if err := l.execve(bin, l.command, shell.Flatten(env)); err != nil {
		return fmt.Errorf("exec %s: %w", bin, err)
	}
	return nil
}
