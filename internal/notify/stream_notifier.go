package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis Streams 事件流名称
const (
	StreamQueueChanged = "queue:changed"
	StreamNewCalls     = "queue:calls"
	StreamPanelCalls   = "queue:panel"
)

// StreamNotifier 将队列事件发布到 Redis Streams
// External dashboards and the administrators console consume these streams
// with consumer groups; retry and replay are theirs to manage.
type StreamNotifier struct {
	client *redis.Client
}

var _ Notifier = (*StreamNotifier)(nil)

func NewStreamNotifier(client *redis.Client) *StreamNotifier {
	return &StreamNotifier{client: client}
}

func (n *StreamNotifier) QueueChanged(ctx context.Context, roomID string) error {
	return n.publish(ctx, StreamQueueChanged, QueueChangedEvent{
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
	})
}

func (n *StreamNotifier) NewCall(ctx context.Context, roomID string, ticketNumber int, patientName string) error {
	return n.publish(ctx, StreamNewCalls, NewCallEvent{
		RoomID:       roomID,
		TicketNumber: ticketNumber,
		PatientName:  patientName,
		Timestamp:    time.Now().UTC(),
	})
}

func (n *StreamNotifier) PanelCall(ctx context.Context, roomID string, ticketNumber int) error {
	return n.publish(ctx, StreamPanelCalls, PanelCallEvent{
		RoomID:       roomID,
		TicketNumber: ticketNumber,
		Timestamp:    time.Now().UTC(),
	})
}

func (n *StreamNotifier) publish(ctx context.Context, stream string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", stream, err)
	}
	return nil
}
