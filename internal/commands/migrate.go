package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Runs database migrations on the configured database. Will create the database if it does not exist.`,
		Action: func(ctx *cli.Context) error {
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(ctx.App.Writer, "Database configured:", a.config.Database.Path)
			return a.migrated(ctx.Context)
		},
		Subcommands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show applied and pending migrations",
				Action: func(ctx *cli.Context) error {
					a, err := bootstrap(ctx)
					if err != nil {
						return err
					}
					defer a.Close()

					manager := a.reader.GetMigrationManager()
					status, err := manager.Status(ctx.Context)
					if err != nil {
						return err
					}
					pending, err := manager.GetPendingMigrations(ctx.Context)
					if err != nil {
						return err
					}

					for _, m := range status.Applied {
						fmt.Fprintf(ctx.App.Writer, "applied  %03d %s\n", m.Version, m.Name)
					}
					for _, m := range pending {
						fmt.Fprintf(ctx.App.Writer, "pending  %03d %s\n", m.Version, m.Name)
					}
					return nil
				},
			},
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Rollback database migration",
		Description: `Rolls back the last database migration`,
		Action: func(ctx *cli.Context) error {
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(ctx.App.Writer, "Database configured:", a.config.Database.Path)
			return a.reader.Rollback(ctx.Context)
		},
	}
}
