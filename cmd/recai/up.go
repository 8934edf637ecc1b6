package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sparky05514/recai/internal/orchestrator"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Run the one-shot bootstrap and exit",
	Long: `Up provisions everything the application needs, in order:
Python interpreter check, virtualenv, pip requirements, .env seed,
ollama binary check, and one pull per configured model.

The command runs once, prints a JSON result to stdout, and exits 0 on
success or non-zero on failure. With --launch it then replaces itself
with the application process.`,
	RunE: runUp,
}

func runUp(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Bootstrap.Timeout)
	defer cancel()

	if app.otelProvider != nil {
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			if err := app.otelProvider.Shutdown(shutCtx); err != nil {
				slog.Warn("OTEL shutdown error", "err", err)
			}
		}()
	}

	result, err := app.orchestrator.RunBootstrap(ctx)
	if result != nil {
		printJSON(result)
	}
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	if result.Status != orchestrator.StatusOK {
		return fmt.Errorf("bootstrap completed with errors")
	}

	slog.Info("bootstrap completed successfully", "runId", result.RunID)

	if launchApp {
		// On success this does not return: the process becomes the app.
		if err := app.orchestrator.Launch(ctx); err != nil {
			return fmt.Errorf("launching application: %w", err)
		}
	}
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		// Fallback to plain text if JSON encoding somehow fails.
		fmt.Fprintln(os.Stdout, `{"status":"error"}`)
	}
}
