package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sparky05514/recai/internal/clients"
	"github.com/Sparky05514/recai/internal/config"
	"github.com/Sparky05514/recai/internal/telemetry"
)

var (
	cfgFile    string
	logLevel   string
	launchApp  bool
	bestEffort bool

	// cfg is populated by PersistentPreRunE and shared with all subcommands.
	cfg *config.Config

	// app holds all wired dependencies; populated by PersistentPreRunE.
	app *AppContext
)

var rootCmd = &cobra.Command{
	Use:   "recai",
	Short: "recai — bootstrap orchestrator for the Recaizade crew app",
	Long: `recai provisions everything the Recaizade crew application needs to run:
a Python virtualenv with the pip requirements installed, a seeded .env
credentials file, and the required Ollama models. Invoked with no arguments
it runs the full bootstrap; use "serve" for the HTTP status API.`,
	SilenceUsage: true,
	RunE:         runUp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	// The bare root invocation is an alias for "up", so it takes the same flags.
	for _, c := range []*cobra.Command{rootCmd, upCmd} {
		c.Flags().BoolVar(&launchApp, "launch", false, "hand off to the application after a successful bootstrap")
		c.Flags().BoolVar(&bestEffort, "best-effort", false, "run every phase even after a failure (default is fail-fast)")
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initLogger(logLevel)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// --log-level flag takes precedence over value in config file.
		if cmd.Flags().Changed("log-level") {
			cfg.Telemetry.LogLevel = logLevel
		} else if cfg.Telemetry.LogLevel != "" {
			// Re-init logger with config file value if the flag was not explicitly set.
			initLogger(cfg.Telemetry.LogLevel)
		}

		// --best-effort overrides the configured policy for this run only.
		if f := cmd.Flags().Lookup("best-effort"); f != nil && f.Changed && bestEffort {
			cfg.Bootstrap.Policy = config.PolicyBestEffort
		}

		app, err = buildAppContext(cfg)
		if err != nil {
			return fmt.Errorf("building app context: %w", err)
		}

		return nil
	}

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute is the entry point called by main. Precondition failures exit 1;
// installer and fetch failures propagate the subprocess exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var installErr *clients.InstallError
	if errors.As(err, &installErr) && installErr.ExitCode > 0 {
		return installErr.ExitCode
	}
	var fetchErr *clients.FetchError
	if errors.As(err, &fetchErr) && fetchErr.ExitCode > 0 {
		return fetchErr.ExitCode
	}
	return 1
}

func initLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(telemetry.NewTraceHandler(handler)))
}
