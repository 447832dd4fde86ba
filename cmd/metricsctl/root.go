package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/app"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/config"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/logger"
	"github.com/spf13/cobra"
)

const version = "v1.0.0"

var rootCmd = &cobra.Command{
	Use:   "metricsctl",
	Short: "Operate the attendance analytics and unified metrics store",
	Long: `metricsctl runs attendance analytics and unified metric recalculations
against the configured record store. Configuration is read from the
environment and an optional .env file, the same as the API server.`,
	SilenceUsage: true,
}

// openApp loads configuration and wires the services. Logs go to stderr so
// stdout carries only command output.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(logger.New(logger.Options{
		App:     "metricsctl",
		Version: version,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Format:  cfg.App.LogFormat,
		Output:  os.Stderr,
	}))

	return app.New(ctx, cfg)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
