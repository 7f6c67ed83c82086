package service

import (
	"context"
	"fmt"
	"time"

	"voucher-queue/internal/repository"
)

// TicketSequencer 票号分配器
// Ticket numbers are sequential per (room, UTC calendar day), starting at 1.
// Assignment is serialized by the room lock; this is the one place in the
// system where a read-then-write race would hand two patients the same number.
type TicketSequencer struct {
	entries repository.QueueRepo
	locks   *roomLocks
}

func NewTicketSequencer(entries repository.QueueRepo, locks *roomLocks) *TicketSequencer {
	return &TicketSequencer{entries: entries, locks: locks}
}

// NextTicket returns the next ticket number for the room on the given day.
func (s *TicketSequencer) NextTicket(ctx context.Context, roomID string, day time.Time) (int, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()
	return s.peek(ctx, roomID, day)
}

// peek computes max+1 without taking the room lock. The caller must already
// hold it (the engine holds it across assignment and insert).
func (s *TicketSequencer) peek(ctx context.Context, roomID string, day time.Time) (int, error) {
	max, err := s.entries.MaxTicketNumber(ctx, roomID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next ticket number: %w", err)
	}
	return max + 1, nil
}
