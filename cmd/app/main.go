// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "tenantcrypt",
		Usage:   "Tenant-isolated field-level encryption",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "print-metrics",
				Value: false,
				Usage: "Write business metrics in Prometheus text format to stderr after the command (requires METRICS_ENABLED)",
			},
		},
		Commands: getCommands(),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
