package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/tenantcrypt/cmd/app/commands"
	"github.com/allisson/tenantcrypt/internal/app"
)

func getFieldCommands() []*cli.Command {
	fieldFlags := func() []cli.Flag {
		return []cli.Flag{
			tenantFlag(),
			&cli.StringFlag{
				Name:     "field",
				Required: true,
				Usage:    "Field name used to derive the field key",
			},
			&cli.StringFlag{
				Name:    "value",
				Aliases: []string{"v"},
				Usage:   "Value to process (read from stdin when omitted)",
			},
		}
	}

	recordFlags := func() []cli.Flag {
		return []cli.Flag{
			tenantFlag(),
			&cli.StringFlag{
				Name:     "table",
				Required: true,
				Usage:    "Table the record belongs to",
			},
			&cli.StringFlag{
				Name:     "fields",
				Required: true,
				Usage:    "Comma-separated encrypted field names",
			},
			&cli.StringFlag{
				Name:  "required",
				Usage: "Comma-separated fields that must be present",
			},
			&cli.StringFlag{
				Name:  "arrays",
				Usage: "Comma-separated fields holding JSON arrays",
			},
		}
	}

	recordOptions := func(cmd *cli.Command) commands.RecordOptions {
		return commands.RecordOptions{
			Table:    cmd.String("table"),
			Fields:   cmd.String("fields"),
			Required: cmd.String("required"),
			Arrays:   cmd.String("arrays"),
		}
	}

	return []*cli.Command{
		{
			Name:  "encrypt-field",
			Usage: "Encrypt a single value under the tenant's active key",
			Flags: fieldFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, func(container *app.Container) error {
					fieldCipherUseCase, err := container.FieldCipherUseCase()
					if err != nil {
						return err
					}

					return commands.RunEncryptField(
						ctx,
						fieldCipherUseCase,
						container.Logger(),
						commands.DefaultIO(),
						cmd.String("tenant"),
						cmd.String("field"),
						cmd.String("value"),
					)
				})
			},
		},
		{
			Name:  "decrypt-field",
			Usage: "Decrypt a single encrypted value",
			Flags: fieldFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, func(container *app.Container) error {
					fieldCipherUseCase, err := container.FieldCipherUseCase()
					if err != nil {
						return err
					}

					return commands.RunDecryptField(
						ctx,
						fieldCipherUseCase,
						container.Logger(),
						commands.DefaultIO(),
						cmd.String("tenant"),
						cmd.String("field"),
						cmd.String("value"),
					)
				})
			},
		},
		{
			Name:  "encrypt-record",
			Usage: "Encrypt the configured fields of a JSON record read from stdin",
			Flags: recordFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, func(container *app.Container) error {
					fieldCipherUseCase, err := container.FieldCipherUseCase()
					if err != nil {
						return err
					}

					return commands.RunEncryptRecord(
						ctx,
						fieldCipherUseCase,
						container.Logger(),
						commands.DefaultIO(),
						cmd.String("tenant"),
						recordOptions(cmd),
					)
				})
			},
		},
		{
			Name:  "decrypt-record",
			Usage: "Decrypt the configured fields of a JSON record read from stdin",
			Flags: recordFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, cmd, func(container *app.Container) error {
					fieldCipherUseCase, err := container.FieldCipherUseCase()
					if err != nil {
						return err
					}

					return commands.RunDecryptRecord(
						ctx,
						fieldCipherUseCase,
						container.Logger(),
						commands.DefaultIO(),
						cmd.String("tenant"),
						recordOptions(cmd),
					)
				})
			},
		},
	}
}
