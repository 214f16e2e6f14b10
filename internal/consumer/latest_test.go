package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLatestEmpty(t *testing.T) {
	t.Parallel()

	l := NewLatest()
	_, err := l.Get()
	require.ErrorIs(t, err, ErrNoMessage)
	require.False(t, l.Ready())
	require.Zero(t, l.Count())
}

func TestLatestSetReplaces(t *testing.T) {
	t.Parallel()

	l := NewLatest()
	l.Set(Message{Value: "one"})
	l.Set(Message{Value: "two"})

	got, err := l.Get()
	require.NoError(t, err)
	require.Equal(t, "two", got.Value)
	require.True(t, l.Ready())
	require.Equal(t, uint64(2), l.Count())
}

func TestLatestWaitReturnsImmediatelyWhenSet(t *testing.T) {
	t.Parallel()

	l := NewLatest()
	l.Set(Message{Value: "ready"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	got, err := l.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "ready", got.Value)
}

func TestLatestWaitReleasesAllWaiters(t *testing.T) {
	t.Parallel()

	l := NewLatest()
	const waiters = 5
	var wg sync.WaitGroup
	results := make(chan string, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg, err := l.Wait(context.Background())
			if err == nil {
				results <- msg.Value
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	l.Set(Message{Value: "broadcast"})
	wg.Wait()
	close(results)

	count := 0
	for v := range results {
		require.Equal(t, "broadcast", v)
		count++
	}
	require.Equal(t, waiters, count)
}

func TestLatestWaitTimesOut(t *testing.T) {
	t.Parallel()

	l := NewLatest()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := l.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
