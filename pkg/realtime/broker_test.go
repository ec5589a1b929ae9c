package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerDelivers(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()
	channel := ProjectChannel(uuid.New())

	messages, stop, err := b.Subscribe(ctx, channel)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, PublishJSON(ctx, b, channel, map[string]int{"progress": 40}))

	select {
	case msg := <-messages:
		assert.JSONEq(t, `{"progress":40}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMemoryBrokerStopUnsubscribes(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	messages, stop, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)
	stop()
	stop()

	require.NoError(t, b.Publish(ctx, "c", []byte("x")))
	_, ok := <-messages
	assert.False(t, ok)
}

func TestChannelNames(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	assert.Equal(t, "user_notifications:00000000-0000-0000-0000-000000000001", UserChannel(id))
	assert.Equal(t, "project_funding:00000000-0000-0000-0000-000000000001", ProjectChannel(id))
}
