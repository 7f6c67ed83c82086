package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Notifier 队列事件通知接口
//
// The queue engine emits three events and owns none of the transport:
//   - QueueChanged: the room's queue content changed in any way. Delivered to
//     the room's observers and to the administrators audience.
//   - NewCall: a patient was called. Delivered to the room's observers.
//   - PanelCall: same call, broadcast to every observer (shared display boards).
//
// Delivery is best-effort. The engine persists first, then notifies, and a
// notification error never rolls back or fails the mutation.
type Notifier interface {
	QueueChanged(ctx context.Context, roomID string) error
	NewCall(ctx context.Context, roomID string, ticketNumber int, patientName string) error
	PanelCall(ctx context.Context, roomID string, ticketNumber int) error
}

// 事件载荷（JSON 网络格式，所有后端共用）

type QueueChangedEvent struct {
	RoomID    string    `json:"room_id"`
	Timestamp time.Time `json:"timestamp"`
}

type NewCallEvent struct {
	RoomID       string    `json:"room_id"`
	TicketNumber int       `json:"ticket_number"`
	PatientName  string    `json:"patient_name"`
	Timestamp    time.Time `json:"timestamp"`
}

type PanelCallEvent struct {
	RoomID       string    `json:"room_id"`
	TicketNumber int       `json:"ticket_number"`
	Timestamp    time.Time `json:"timestamp"`
}

// NopNotifier discards all events. Used in tests and when no transport is
// configured.
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

func (NopNotifier) QueueChanged(context.Context, string) error         { return nil }
func (NopNotifier) NewCall(context.Context, string, int, string) error { return nil }
func (NopNotifier) PanelCall(context.Context, string, int) error       { return nil }

// Fanout delivers each event to every configured backend. A failing backend
// is logged and skipped; Fanout itself never returns an error.
type Fanout struct {
	targets []Notifier
	logger  *zap.Logger
}

var _ Notifier = (*Fanout)(nil)

func NewFanout(logger *zap.Logger, targets ...Notifier) *Fanout {
	return &Fanout{targets: targets, logger: logger}
}

func (f *Fanout) QueueChanged(ctx context.Context, roomID string) error {
	for _, t := range f.targets {
		if err := t.QueueChanged(ctx, roomID); err != nil {
			f.logger.Warn("queue-changed notification failed",
				zap.String("room_id", roomID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (f *Fanout) NewCall(ctx context.Context, roomID string, ticketNumber int, patientName string) error {
	for _, t := range f.targets {
		if err := t.NewCall(ctx, roomID, ticketNumber, patientName); err != nil {
			f.logger.Warn("new-call notification failed",
				zap.String("room_id", roomID),
				zap.Int("ticket_number", ticketNumber),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (f *Fanout) PanelCall(ctx context.Context, roomID string, ticketNumber int) error {
	for _, t := range f.targets {
		if err := t.PanelCall(ctx, roomID, ticketNumber); err != nil {
			f.logger.Warn("panel-call notification failed",
				zap.String("room_id", roomID),
				zap.Int("ticket_number", ticketNumber),
				zap.Error(err),
			)
		}
	}
	return nil
}
