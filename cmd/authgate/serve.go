package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ideatrek/authgate/app/authgate"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := authgate.New(ctx, cfg)
			if err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides SERVER_ADDR")
	return cmd
}
