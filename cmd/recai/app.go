package main

import (
	"context"
	"log/slog"

	"github.com/Sparky05514/recai/internal/api"
	"github.com/Sparky05514/recai/internal/clients"
	"github.com/Sparky05514/recai/internal/config"
	"github.com/Sparky05514/recai/internal/orchestrator"
	"github.com/Sparky05514/recai/internal/secrets"
	"github.com/Sparky05514/recai/internal/shell"
	"github.com/Sparky05514/recai/internal/telemetry"
)

// AppContext holds all constructed application dependencies shared across
// subcommands. It is built once in PersistentPreRunE and referenced by
// up.go, doctor.go, and serve.go.
type AppContext struct {
	cfg          *config.Config
	otelProvider *telemetry.Provider
	orchestrator *orchestrator.Orchestrator
	router       *api.Router
}

// buildAppContext constructs all application dependencies from cfg:
//  1. Initialises the OTEL provider (best-effort, non-fatal)
//  2. Creates one circuit breaker per external dependency
//  3. Creates the python and ollama clients, the secrets store, and the launcher
//  4. Creates the orchestrator
//  5. Creates the HTTP router
func buildAppContext(cfg *config.Config) (*AppContext, error) {
	app := &AppContext{cfg: cfg}

	// OTEL is best-effort: a missing collector must never block a bootstrap.
	// When OTLPEndpoint is empty (the default for a local tool), telemetry is
	// disabled entirely.
	if cfg.Telemetry.OTLPEndpoint == "" {
		slog.Debug("OTEL telemetry disabled (no endpoint configured)")
	} else {
		tp, err := telemetry.InitProvider(
			context.Background(),
			cfg.Telemetry.OTLPEndpoint,
			cfg.Telemetry.ServiceName,
			cfg.Telemetry.OTLPInsecure,
		)
		if err != nil {
			slog.Warn("OTEL provider init failed — telemetry disabled", "err", err)
		} else {
			app.otelProvider = tp
		}
	}

	runner := shell.NewRunner()

	// One circuit breaker per dependency so each trips independently.
	python := clients.NewPythonClient(cfg, runner, clients.NewCircuitBreaker("python"))
	ollama := clients.NewOllamaClient(cfg.Ollama, runner, clients.NewCircuitBreaker("ollama"))
	store := secrets.New(cfg.SecretsPath(), cfg.Secrets.Key, cfg.Secrets.Sentinel)
	launcher := clients.NewAppLauncher(cfg, python.VenvBin(), runner)

	app.orchestrator = orchestrator.New(python, ollama, store, launcher, cfg.Ollama.Models, cfg.Bootstrap.Policy)
	app.router = api.NewRouter(app.orchestrator)

	return app, nil
}
