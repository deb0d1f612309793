package commands

import (
	"github.com/urfave/cli/v2"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch feeds once",
		Description: `Fetches every registered feed, or only the one given by --feed, and
		prints the outcome as JSON.`,
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "feed",
				Usage: "Only fetch the feed with this id",
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

			refresher := a.reader.GetRefresher()
			if id := ctx.Int64("feed"); id > 0 {
				result, err := refresher.RefreshFeed(ctx.Context, id)
				if result != nil {
					printJSON(ctx.App.Writer, result)
				}
				return err
			}

			summary, err := refresher.RefreshAll(ctx.Context)
			if err != nil {
				return err
			}
			return printJSON(ctx.App.Writer, summary)
		},
	}
}
