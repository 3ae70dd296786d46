package messagequeue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_PublishConsume(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, q.Publish(ctx, "events", []byte("one")))
	require.NoError(t, q.Publish(ctx, "events", []byte("two")))
	require.NoError(t, q.Publish(ctx, "other", []byte("ignored")))

	var got []string
	consumeCtx, stop := context.WithCancel(ctx)
	err := q.Consume(consumeCtx, "events", func(_ context.Context, body []byte) error {
		got = append(got, string(body))
		if len(got) == 2 {
			stop()
		}
		return errors.New("rejected messages are dropped, not redelivered")
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestMemoryQueue_Close(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, "events", func(context.Context, []byte) error {
			close(started)
			return nil
		})
	}()

	require.NoError(t, q.Publish(ctx, "events", []byte("x")))
	<-started
	require.NoError(t, q.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after Close")
	}

	assert.ErrorIs(t, q.Publish(ctx, "events", []byte("late")), ErrClosed)
	assert.NoError(t, q.Close())
}

func TestMemoryQueue_PublishCopiesBody(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body := []byte("abc")
	require.NoError(t, q.Publish(ctx, "events", body))
	body[0] = 'z'

	_ = q.Consume(ctx, "events", func(_ context.Context, msg []byte) error {
		assert.Equal(t, "abc", string(msg))
		cancel()
		return nil
	})
}
