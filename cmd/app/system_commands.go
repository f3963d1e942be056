package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/tenantcrypt/cmd/app/commands"
	"github.com/allisson/tenantcrypt/internal/app"
	"github.com/allisson/tenantcrypt/internal/config"
)

func getSystemCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-system-key",
			Usage: "Generate a new system master key",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunCreateSystemKey(commands.DefaultIO().Writer)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "inspect-value",
			Usage: "Show whether a stored value is encrypted and which key version produced it",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "value",
					Aliases:  []string{"v"},
					Required: true,
					Usage:    "Stored field value",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunInspectValue(commands.DefaultIO().Writer, cmd.String("value"), cmd.String("format"))
			},
		},
	}
}
