package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"feedreader/internal/server"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the reader API",
		Description: `Applies pending migrations, starts the enabled background loops and
		serves the JSON API until interrupted.`,
		Action: func(ctx *cli.Context) error {
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.migrated(runCtx); err != nil {
				return err
			}

			srv := server.New(a.config, a.logger, a.db, a.registry)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(runCtx)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-runCtx.Done():
				a.logger.Info("Gracefully shutting down...")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
