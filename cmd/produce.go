package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/kafka-viewer/internal/server"
)

// runProducer is replaced in tests.
var runProducer = server.RunProducer

// newProduceCmd creates the 'produce' subcommand.
func newProduceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "produce",
		Short: "Publishes numbered demo messages to the broker",
		Long: `Publishes a batch of "Message Id <n>: <MSG>" values every producer.interval
to the Kafka topic the consumer reads, or to a Pub/Sub topic when
producer.sink is pubsub.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}
			return runProducer(cmd.Context(), cfg, nil)
		},
	}
}
