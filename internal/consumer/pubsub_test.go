package consumer

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/kafka-viewer/internal/config"
)

func TestPubSubSourceReceivesAndAcks(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	admin, err := pubsub.NewClient(ctx, "proj", option.WithGRPCConn(conn))
	require.NoError(t, err)
	topic, err := admin.CreateTopic(ctx, "messages")
	require.NoError(t, err)
	_, err = admin.CreateSubscription(ctx, "viewer", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	src, err := NewPubSubSource(ctx, config.PubSubConfig{ProjectID: "proj", SubscriptionID: "viewer"}, nil, option.WithGRPCConn(conn))
	require.NoError(t, err)
	require.Equal(t, config.SourcePubSub, src.Name())

	runCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	received := make(chan Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- src.Run(runCtx, func(m Message) {
			select {
			case received <- m:
			default:
			}
		})
	}()

	_, err = topic.Publish(ctx, &pubsub.Message{Data: []byte("hello from pubsub")}).Get(ctx)
	require.NoError(t, err)

	select {
	case m := <-received:
		require.Equal(t, "hello from pubsub", m.Value)
		require.Equal(t, config.SourcePubSub, m.Source)
		require.NotEmpty(t, m.ID)
	case <-runCtx.Done():
		t.Fatal("no message received")
	}

	cancel()
	require.NoError(t, <-done)

	require.Eventually(t, func() bool {
		for _, m := range srv.Messages() {
			if m.Acks == 0 {
				return false
			}
		}
		return true
	}, 5*time.Second, 20*time.Millisecond)

	topic.Stop()
	require.NoError(t, src.Close())
}
