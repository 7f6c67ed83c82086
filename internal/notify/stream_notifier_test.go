package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamFixture(t *testing.T) (*StreamNotifier, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStreamNotifier(client), client
}

func TestStreamNotifierQueueChanged(t *testing.T) {
	n, client := newStreamFixture(t)
	ctx := context.Background()

	require.NoError(t, n.QueueChanged(ctx, "room-a"))

	msgs, err := client.XRange(ctx, StreamQueueChanged, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var event QueueChangedEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &event))
	assert.Equal(t, "room-a", event.RoomID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestStreamNotifierNewCall(t *testing.T) {
	n, client := newStreamFixture(t)
	ctx := context.Background()

	require.NoError(t, n.NewCall(ctx, "room-a", 7, "Maria Silva"))

	msgs, err := client.XRange(ctx, StreamNewCalls, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var event NewCallEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &event))
	assert.Equal(t, "room-a", event.RoomID)
	assert.Equal(t, 7, event.TicketNumber)
	assert.Equal(t, "Maria Silva", event.PatientName)
}

func TestStreamNotifierPanelCall(t *testing.T) {
	n, client := newStreamFixture(t)
	ctx := context.Background()

	require.NoError(t, n.PanelCall(ctx, "room-a", 7))

	msgs, err := client.XRange(ctx, StreamPanelCalls, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var event PanelCallEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &event))
	assert.Equal(t, 7, event.TicketNumber)
}

func TestStreamNotifierErrorWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	n := NewStreamNotifier(client)

	mr.Close()

	err := n.QueueChanged(context.Background(), "room-a")
	assert.Error(t, err)
}
