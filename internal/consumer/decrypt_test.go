package consumer

import (
	"context"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/kafka-viewer/internal/config"
	"github.com/JakeFAU/kafka-viewer/internal/crypto/oaep"
	"github.com/JakeFAU/kafka-viewer/internal/crypto/oaep/oaeptest"
)

func TestDecryptingKafkaSource(t *testing.T) {
	t.Parallel()

	key := oaeptest.NewKey(t)
	ciphertext, err := oaep.NewEncrypter(&key.PublicKey).Encrypt("Message Id 12345: Hello World")
	require.NoError(t, err)

	reader := &fakeReader{
		msgs: []kafka.Message{
			{Value: []byte(ciphertext), Offset: 1},
			{Value: []byte("plain text from an old producer"), Offset: 2},
		},
		err: io.EOF,
	}
	core, logs := observer.New(zap.WarnLevel)
	src := NewDecryptingSource(newKafkaSource(reader, zap.NewNop()), oaep.NewDecrypter(key), zap.New(core))
	require.Equal(t, config.SourceKafka, src.Name())

	var got []Message
	require.NoError(t, src.Run(context.Background(), func(m Message) { got = append(got, m) }))
	require.Len(t, got, 2)
	require.Equal(t, "Message Id 12345: Hello World", got[0].Value)
	require.Equal(t, int64(1), got[0].Offset)
	require.Equal(t, "plain text from an old producer", got[1].Value)

	warnings := logs.FilterMessage("message decryption failed; passing value through").All()
	require.Len(t, warnings, 1)
	require.Equal(t, int64(2), warnings[0].ContextMap()["offset"])

	require.NoError(t, src.Close())
	require.True(t, reader.closed)
}

func TestDecryptingPubSubSource(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	admin, err := pubsub.NewClient(ctx, "proj", option.WithGRPCConn(conn))
	require.NoError(t, err)
	topic, err := admin.CreateTopic(ctx, "sealed")
	require.NoError(t, err)
	defer topic.Stop()
	_, err = admin.CreateSubscription(ctx, "viewer-sealed", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	inner, err := NewPubSubSource(ctx, config.PubSubConfig{ProjectID: "proj", SubscriptionID: "viewer-sealed"}, nil, option.WithGRPCConn(conn))
	require.NoError(t, err)

	key := oaeptest.NewKey(t)
	src := NewDecryptingSource(inner, oaep.NewDecrypter(key), nil)
	ciphertext, err := oaep.NewEncrypter(&key.PublicKey).Encrypt("hello from pubsub")
	require.NoError(t, err)

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

	_, err = topic.Publish(ctx, &pubsub.Message{Data: []byte(ciphertext)}).Get(ctx)
	require.NoError(t, err)

	select {
	case m := <-received:
		require.Equal(t, "hello from pubsub", m.Value)
	case <-runCtx.Done():
		t.Fatal("no message received")
	}
	cancel()
	require.NoError(t, <-done)
	require.NoError(t, src.Close())
}
