package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func purgeCmd() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete old read articles",
		Description: `Deletes read articles fetched more than --days days ago. Starred
		articles are kept when FEEDREADER_PURGE_KEEP_STARRED is set.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "days",
				Usage:   "Age threshold in days",
				EnvVars: []string{"FEEDREADER_PURGE_THRESHOLD_DAYS"},
				Value:   30,
			},
		},
		Action: func(ctx *cli.Context) error {
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireReader(); err != nil {
				return err
			}
			if err := a.migrated(ctx.Context); err != nil {
				return err
			}

			deleted, err := a.reader.GetArticleService().PurgeOlderThanDays(ctx.Context, ctx.Int("days"))
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "Purged %d read articles\n", deleted)
			return nil
		},
	}
}
