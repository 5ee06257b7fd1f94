package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestMemory(visibility time.Duration) (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2023, 5, 17, 9, 0, 0, 0, time.UTC)}
	q := NewMemory(visibility)
	q.now = clock.now
	return q, clock
}

func TestMemoryReceiveRespectsMax(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestMemory(time.Minute)
	for _, b := range []string{"a", "b", "c"} {
		require.NoError(t, q.Send(ctx, "in", b))
	}

	first, err := q.Receive(ctx, "in", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "a", first[0].Body)
	assert.Equal(t, "b", first[1].Body)

	rest, err := q.Receive(ctx, "in", 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].Body)

	none, err := q.Receive(ctx, "in", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryRedeliversUndeletedMessages(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestMemory(time.Minute)
	require.NoError(t, q.Send(ctx, "in", "body"))

	first, err := q.Receive(ctx, "in", 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	clock.t = clock.t.Add(59 * time.Second)
	hidden, err := q.Receive(ctx, "in", 1)
	require.NoError(t, err)
	assert.Empty(t, hidden)

	clock.t = clock.t.Add(2 * time.Second)
	again, err := q.Receive(ctx, "in", 1)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, first[0].ID, again[0].ID)
	assert.NotEqual(t, first[0].ReceiptHandle, again[0].ReceiptHandle)

	// The first delivery's receipt no longer deletes the message.
	assert.ErrorIs(t, q.Delete(ctx, "in", first[0].ReceiptHandle), ErrUnknownReceipt)
	require.NoError(t, q.Delete(ctx, "in", again[0].ReceiptHandle))
	assert.Equal(t, 0, q.Len("in"))
}

func TestMemoryDeleteUnknown(t *testing.T) {
	q, _ := newTestMemory(time.Minute)
	assert.ErrorIs(t, q.Delete(context.Background(), "in", "nope"), ErrUnknownReceipt)
}

func TestMemoryQueuesAreIndependent(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestMemory(time.Minute)
	require.NoError(t, q.Send(ctx, "in", "x"))
	require.NoError(t, q.Send(ctx, "out", "y"))

	msgs, err := q.Receive(ctx, "out", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "y", msgs[0].Body)
	assert.Equal(t, []string{"x"}, q.Bodies("in"))
}
