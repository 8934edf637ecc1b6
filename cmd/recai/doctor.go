package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Probe all external dependencies and report their health",
	Long: `Doctor concurrently probes the Python virtualenv, the Ollama daemon,
and the secrets file, prints a JSON report to stdout, and exits non-zero
if any dependency is unhealthy. A credential still set to its placeholder
counts as unhealthy.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	probes := app.orchestrator.RunDeepHealth(ctx)
	printJSON(probes)

	for _, p := range probes {
		if !p.OK {
			return fmt.Errorf("one or more dependencies unhealthy")
		}
	}
	return nil
}
