package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/kafka-viewer/internal/server"
)

// newConsumeCmd creates the 'consume' subcommand.
func newConsumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Reads the broker and serves the latest message as plain text",
		Long: `Starts the consumer service. Messages are read from Kafka (TOPIC, BROKERS,
CONSUMERGROUP) or from a Pub/Sub subscription, and GET / returns the latest
one. If nothing arrives within consumer.read_timeout a timeout notice is
returned instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, server.BuildConsumer)
		},
	}
}
