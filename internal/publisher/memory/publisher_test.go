package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherStoresValues(t *testing.T) {
	t.Parallel()

	pub := New()
	require.NoError(t, pub.Publish(context.Background(), "a", "b"))
	require.NoError(t, pub.Publish(context.Background(), "c"))

	values := pub.Values()
	require.Equal(t, []string{"a", "b", "c"}, values)

	values[0] = "modified"
	require.Equal(t, "a", pub.Values()[0], "Values() returns a copy")
}

func TestPublisherFailWith(t *testing.T) {
	t.Parallel()

	pub := New()
	boom := errors.New("boom")
	pub.FailWith(boom)
	require.ErrorIs(t, pub.Publish(context.Background(), "x"), boom)
	require.Empty(t, pub.Values())

	pub.FailWith(nil)
	require.NoError(t, pub.Publish(context.Background(), "x"))
	require.NoError(t, pub.Close())
	require.True(t, pub.Closed())
}
