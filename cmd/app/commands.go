package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/tenantcrypt/internal/app"
	"github.com/allisson/tenantcrypt/internal/config"
)

func getCommands() []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands()...)
	cmds = append(cmds, getKeyCommands()...)
	cmds = append(cmds, getFieldCommands()...)
	return cmds
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func tenantFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "tenant",
		Aliases:  []string{"t"},
		Required: true,
		Usage:    "Tenant identifier",
	}
}

// withContainer loads and validates configuration, runs fn against a fresh container and
// shuts the container down afterwards. Shutdown drains pending audit records.
func withContainer(ctx context.Context, cmd *cli.Command, fn func(container *app.Container) error) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer func() {
		if err := container.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown container", slog.Any("error", err))
		}
	}()

	runErr := fn(container)

	if cmd.Bool("print-metrics") {
		if !cfg.MetricsEnabled {
			logger.Warn("--print-metrics ignored because METRICS_ENABLED is false")
			return runErr
		}
		provider, err := container.MetricsProvider()
		if err != nil {
			return fmt.Errorf("failed to get metrics provider: %w", err)
		}
		if err := provider.WriteText(os.Stderr); err != nil {
			logger.Error("failed to write metrics", slog.Any("error", err))
		}
	}

	return runErr
}
