package cli

import (
	"context"
	"errors"
	"time"

	api "github.com/eugene-nechvoloda/MeetyAI-sub000/cmd/api"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/cloudimport"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const importLookback = 24 * time.Hour

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *application) error {
				if addr == "" {
					addr = ":" + app.cfg.Port
				}
				return serve(cmd.Context(), app, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to :$PORT)")
	return cmd
}

func serve(ctx context.Context, app *application, addr string) error {
	logger := app.logger
	if moved, err := app.machine.FailStale(ctx); err != nil {
		logger.Warn("recover abandoned analyses", "error", err)
	} else if moved > 0 {
		logger.Info("abandoned analyses marked failed", "count", moved)
	}
	handler := api.NewHandler(app.usecases, app.settings, app.cfg, logger)

	im, client, err := app.importer(ctx)
	if err != nil {
		return err
	}
	if im != nil {
		scheduler := cloudimport.NewScheduler(client, im, app.cfg.CloudImportInterval, importLookback, logger)
		scheduler.Start(ctx)
		defer scheduler.Stop()
	} else {
		logger.Info("cloud import disabled")
	}

	g, gCtx := errgroup.WithContext(ctx)
	if im != nil && app.cfg.GoogleProjectID != "" {
		sub, err := cloudimport.NewSubscriber(ctx, app.cfg.GoogleProjectID, app.cfg.PubSubSubscription, app.cfg.GoogleCredentials, im, logger)
		if err != nil {
			logger.Warn("recording events disabled", "error", err)
		} else {
			defer sub.Close()
			g.Go(func() error {
				if err := sub.Start(gCtx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("recording event subscriber stopped", "error", err)
				}
				return nil
			})
		}
	}

	g.Go(func() error {
		return handler.Start(addr)
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), shutdownGrace)
		defer cancel()
		return handler.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
