package commands

import (
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// RootApp builds the feedreader command line
func RootApp() *cli.App {
	return &cli.App{
		Name:  "feedreader",
		Usage: "A personal feed reader",
		Description: `Polls RSS and Atom feeds, keeps the articles in SQLite and
		serves them over a small JSON API.

		Settings are read from the environment, e.g.:

		--database => FEEDREADER_DB_PATH=feedreader.db
		FEEDREADER_POLL_INTERVAL_SECONDS=900`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file before reading the configuration",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "SQLite database file location",
				EnvVars: []string{"FEEDREADER_DB_PATH"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// A missing env file is fine; the environment may already be set
			_ = godotenv.Load(ctx.String("env-file"))
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			fetchCmd(),
			purgeCmd(),
			importCmd(),
		},
		Action: func(ctx *cli.Context) error {
			return cli.ShowAppHelp(ctx)
		},
	}
}
