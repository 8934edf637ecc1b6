package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/Sparky05514/recai/internal/config"
)

// ErrBootstrapInProgress is returned when RunBootstrap is called while a
// bootstrap is already running.
var ErrBootstrapInProgress = errors.New("bootstrap already in progress")

// PythonProvisioner is satisfied by *clients.PythonClient.
type PythonProvisioner interface {
	EnsureInterpreter(ctx context.Context) (string, error)
	EnsureVenv(ctx context.Context) (bool, error)
	InstallRequirements(ctx context.Context) error
	Probe(ctx context.Context) ProbeResult
}

// ModelFetcher is satisfied by *clients.OllamaClient.
type ModelFetcher interface {
	EnsureTool(ctx context.Context) (string, error)
	Pull(ctx context.Context, model string) error
	Probe(ctx context.Context) ProbeResult
}

// SecretSeeder is satisfied by *secrets.Store.
type SecretSeeder interface {
	Seed() (bool, error)
	IsPlaceholder() (bool, error)
	Path() string
}

// Launcher hands control to the downstream application. Satisfied by
// *clients.AppLauncher. On success Launch does not return.
type Launcher interface {
	Launch(ctx context.Context) error
}

// Orchestrator runs the sequential bootstrap state machine and the
// concurrent deep-health probes.
type Orchestrator struct {
	python   PythonProvisioner
	fetcher  ModelFetcher
	secrets  SecretSeeder
	launcher Launcher
	models   []string
	policy   string

	bootstrapInProgress atomic.Bool
	lastResult          *BootstrapResult
	resultMu            sync.RWMutex
}

// New constructs an Orchestrator. models is the ordered list of artifacts to
// pull; policy is config.PolicyFailFast or config.PolicyBestEffort.
func New(python PythonProvisioner, fetcher ModelFetcher, secrets SecretSeeder, launcher Launcher, models []string, policy string) *Orchestrator {
	return &Orchestrator{
		python:   python,
		fetcher:  fetcher,
		secrets:  secrets,
		launcher: launcher,
		models:   models,
		policy:   policy,
	}
}

// step is one phase of the bootstrap state machine.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// steps returns the bootstrap phases in execution order:
// interpreter → virtualenv → requirements → secrets → tool → one pull per model.
func (o *Orchestrator) steps() []step {
	s := []step{
		{name: "interpreter", run: func(ctx context.Context) error {
			_, err := o.python.EnsureInterpreter(ctx)
			return err
		}},
		{name: "virtualenv", run: func(ctx context.Context) error {
			created, err := o.python.EnsureVenv(ctx)
			if err != nil {
				return err
			}
			if !created {
				slog.DebugContext(ctx, "virtualenv already present")
			}
			return nil
		}},
		{name: "requirements", run: o.python.InstallRequirements},
		{name: "secrets", run: func(ctx context.Context) error {
			created, err := o.secrets.Seed()
			if err != nil {
				return err
			}
			if created {
				slog.InfoContext(ctx, "seeded secrets file with placeholder", "file", o.secrets.Path())
			}
			return nil
		}},
		{name: "tool", run: func(ctx context.Context) error {
			_, err := o.fetcher.EnsureTool(ctx)
			return err
		}},
	}

	for _, model := range o.models {
		model := model
		s = append(s, step{
			name: "model:" + model,
			run: func(ctx context.Context) error {
				return o.fetcher.Pull(ctx, model)
			},
		})
	}
	return s
}

// RunBootstrap executes every phase in order. Under fail-fast, the first
// failed phase halts the run and all remaining phases are recorded as
// skipped; under best-effort, every phase runs and failures only mark status.
// The returned error is the first phase failure (nil when all phases passed),
// so the CLI can map typed errors to exit codes. Returns
// ErrBootstrapInProgress if a run is already active.
func (o *Orchestrator) RunBootstrap(ctx context.Context) (*BootstrapResult, error) {
	if !o.bootstrapInProgress.CompareAndSwap(false, true) {
		return nil, ErrBootstrapInProgress
	}
	defer o.bootstrapInProgress.Store(false)

	steps := o.steps()
	result := &BootstrapResult{
		RunID:  uuid.NewString(),
		Status: StatusInProgress,
		Policy: o.policy,
		Phases: make([]PhaseResult, 0, len(steps)),
	}

	ctx, span := otel.Tracer("recai").Start(ctx, "recai.bootstrap")
	defer span.End()

	slog.InfoContext(ctx, "bootstrap started", "runId", result.RunID, "policy", o.policy)

	var firstErr error
	halted := false

	for _, st := range steps {
		if halted {
			result.Phases = append(result.Phases, PhaseResult{Name: st.name, Status: StatusSkipped})
			continue
		}

		phase := PhaseResult{Name: st.name, Status: StatusOK}
		if err := st.run(ctx); err != nil {
			phase.Status = StatusError
			phase.Error = err.Error()
			if firstErr == nil {
				firstErr = fmt.Errorf("phase %s: %w", st.name, err)
			}
			if o.policy == config.PolicyFailFast {
				halted = true
			}
		}
		logPhase(ctx, phase)
		result.Phases = append(result.Phases, phase)
	}

	result.Status = StatusOK
	if firstErr != nil {
		result.Status = StatusError
	}

	span.SetAttributes(
		attribute.String("bootstrap.status", result.Status),
		attribute.String("bootstrap.run_id", result.RunID),
	)
	if result.Status == StatusError {
		span.SetStatus(codes.Error, "one or more bootstrap phases failed")
		slog.WarnContext(ctx, "bootstrap completed with errors", "runId", result.RunID, "status", result.Status)
	} else {
		span.SetStatus(codes.Ok, "")
		slog.InfoContext(ctx, "bootstrap completed", "runId", result.RunID, "status", result.Status)
	}

	o.resultMu.Lock()
	o.lastResult = result
	o.resultMu.Unlock()

	return result, firstErr
}

// Launch hands control to the downstream application. It is only valid after
// a successful bootstrap; on success it never returns.
func (o *Orchestrator) Launch(ctx context.Context) error {
	if !o.IsReady() {
		return errors.New("launch refused: last bootstrap did not complete successfully")
	}
	return o.launcher.Launch(ctx)
}

// RunDeepHealth probes the python venv, the ollama daemon, and the secrets
// file concurrently and returns a map of dependency name to ProbeResult. The
// secrets probe reports !OK while the credential is still the placeholder —
// the app would start but every model call through that key would fail.
func (o *Orchestrator) RunDeepHealth(ctx context.Context) map[string]ProbeResult {
	results := make(map[string]ProbeResult, 3)
	var mu sync.Mutex
	var g errgroup.Group

	g.Go(func() error {
		probe := o.python.Probe(ctx)
		mu.Lock()
		results["python"] = probe
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		probe := o.fetcher.Probe(ctx)
		mu.Lock()
		results["ollama"] = probe
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		probe := o.probeSecrets()
		mu.Lock()
		results["secrets"] = probe
		mu.Unlock()
		return nil
	})

	_ = g.Wait()
	return results
}

func (o *Orchestrator) probeSecrets() ProbeResult {
	placeholder, err := o.secrets.IsPlaceholder()
	switch {
	case err != nil:
		return ProbeResult{Name: "secrets", OK: false, Error: err.Error()}
	case placeholder:
		return ProbeResult{Name: "secrets", OK: false, Error: "credential still set to placeholder in " + o.secrets.Path()}
	default:
		return ProbeResult{Name: "secrets", OK: true}
	}
}

// IsBootstrapInProgress returns true while a bootstrap run is active.
func (o *Orchestrator) IsBootstrapInProgress() bool {
	return o.bootstrapInProgress.Load()
}

// IsReady returns true if the last bootstrap completed with StatusOK.
func (o *Orchestrator) IsReady() bool {
	o.resultMu.RLock()
	defer o.resultMu.RUnlock()
	return o.lastResult != nil && o.lastResult.Status == StatusOK
}

// LastResult returns the most recent bootstrap result, or nil before the
// first run finishes.
func (o *Orchestrator) LastResult() *BootstrapResult {
	o.resultMu.RLock()
	defer o.resultMu.RUnlock()
	return o.lastResult
}

// logPhase emits a trace-correlated log for a bootstrap phase result.
// Errors log at WARN so they are visible without being fatal to the logger.
func logPhase(ctx context.Context, p PhaseResult) {
	if p.Status == StatusOK {
		slog.InfoContext(ctx, "bootstrap phase ok", "phase", p.Name)
		return
	}
	slog.WarnContext(ctx, "bootstrap phase failed", "phase", p.Name, "error", p.Error)
}
