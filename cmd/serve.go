package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/kafka-viewer/internal/config"
	"github.com/JakeFAU/kafka-viewer/internal/server"
)

type appBuilder func(ctx context.Context, cfg *config.Config, opts ...server.Option) (*server.App, error)

// runApp builds and runs an application. Tests replace it.
var runApp = func(cmd *cobra.Command, build appBuilder) error {
	cfg, err := resolveConfig(cmd.Context())
	if err != nil {
		return err
	}
	app, err := build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if err := app.Run(cmd.Context()); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// newServeCmd creates the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the message page and the /api/data proxy route",
		Long: `Starts the front-end. The page component polls /api/data every
page.poll_interval, and /api/data forwards to the consumer service at
http://$CONSUMER_SERVICE_HOST:$CONSUMER_SERVICE_PORT/.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, server.BuildViewer)
		},
	}
}
