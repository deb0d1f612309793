package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"feedreader/internal/features/reader/services"
)

func importCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Register feeds from a subscription list",
		ArgsUsage: "FILE",
		Description: `Reads a TOML subscription list and registers every feed in it:

		[[feed]]
		url = "https://example.com/feed.xml"
		tags = ["tech"]

		Feeds that are already registered get the listed tags added.`,
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return fmt.Errorf("import expects exactly one FILE argument")
			}

			list, err := services.LoadSubscriptions(ctx.Args().First())
			if err != nil {
				return err
			}

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

			result, err := a.reader.GetFeedService().Import(ctx.Context, *list)
			if err != nil {
				return err
			}
			return printJSON(ctx.App.Writer, result)
		},
	}
}
