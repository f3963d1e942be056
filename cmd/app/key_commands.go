package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/tenantcrypt/cmd/app/commands"
	"github.com/allisson/tenantcrypt/internal/app"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "provision-tenant-key",
			Usage: "Create the first key for a tenant, or report its active version",
			Flags: []cli.Flag{tenantFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, func(container *app.Container) error {
					tenantKeyUseCase, err := container.TenantKeyUseCase()
					if err != nil {
						return err
					}

					return commands.RunProvisionTenantKey(
						ctx,
						tenantKeyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("tenant"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "rotate-tenant-key",
			Usage: "Create the next key version for a tenant and make it active",
			Flags: []cli.Flag{tenantFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, func(container *app.Container) error {
					tenantKeyUseCase, err := container.TenantKeyUseCase()
					if err != nil {
						return err
					}

					return commands.RunRotateTenantKey(
						ctx,
						tenantKeyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("tenant"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "list-tenant-keys",
			Usage: "List the key versions retained for a tenant",
			Flags: []cli.Flag{tenantFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, func(container *app.Container) error {
					tenantKeyUseCase, err := container.TenantKeyUseCase()
					if err != nil {
						return err
					}

					return commands.RunListTenantKeys(
						ctx,
						tenantKeyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("tenant"),
						cmd.String("format"),
					)
				})
			},
		},
	}
}
