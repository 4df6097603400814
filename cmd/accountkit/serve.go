package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/accountkit/internal/app"
	"github.com/dmitrymomot/accountkit/pkg/config"
	"github.com/dmitrymomot/accountkit/pkg/httpserver"
	"github.com/dmitrymomot/accountkit/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log, err := newLogger()
			if err != nil {
				return err
			}
			var cfg app.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.WithoutCancel(ctx)); err != nil {
					log.Error("failed to close backends", logger.Error(err))
				}
			}()

			srv := httpserver.New(cfg.HTTP, httpserver.WithLogger(log))
			return srv.Run(ctx, a.Handler())
		},
	}
}
