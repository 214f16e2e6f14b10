package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/config"
)

var cfgFile string

type configKeyType string

const configKey configKeyType = "config"

// loadConfig is the configuration factory. Tests replace it.
var loadConfig = config.Load

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kafkaviewer",
		Short: "Displays the latest message read from a Kafka topic.",
		Long: `kafkaviewer serves a small web page that polls a consumer service for the
most recent broker message and labels it as encrypted or decrypted.

Run "kafkaviewer serve" for the front-end, "kafkaviewer consume" for the
consumer service it proxies to, and "kafkaviewer produce" to feed the topic.`,
		SilenceUsage: true,

		// Runs before every subcommand so each one starts from validated configuration.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), configKey, &cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables override it")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConsumeCmd())
	cmd.AddCommand(newProduceCmd())

	return cmd
}

func resolveConfig(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logger, lerr := zap.NewProduction()
		if lerr != nil {
			logger = zap.NewNop()
		}
		logger.Fatal("Command execution failed", zap.Error(err))
	}
}
