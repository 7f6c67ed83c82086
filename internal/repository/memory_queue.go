package repository

import (
	"context"
	"sync"
	"time"

	"voucher-queue/internal/domain"
)

// MemoryQueueRepo keeps queue entries in process memory. Used when DB is
// disabled (dev/test mode) and as the reference implementation for the
// engine's unit tests. Entries are stored by value and copied out, so callers
// never share memory with the map.
type MemoryQueueRepo struct {
	mu      sync.RWMutex
	entries map[string]domain.QueueEntry // entryID -> entry
}

var _ QueueRepo = (*MemoryQueueRepo)(nil)

func NewMemoryQueueRepo() *MemoryQueueRepo {
	return &MemoryQueueRepo{
		entries: map[string]domain.QueueEntry{},
	}
}

func (r *MemoryQueueRepo) InsertEntry(_ context.Context, e *domain.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = *e
	return nil
}

func (r *MemoryQueueRepo) GetEntry(_ context.Context, entryID string) (*domain.QueueEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[entryID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := e
	return &cp, nil
}

func (r *MemoryQueueRepo) UpdateEntry(_ context.Context, e *domain.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[e.ID]; !ok {
		return ErrNotFound
	}
	r.entries[e.ID] = *e
	return nil
}

func (r *MemoryQueueRepo) DeleteEntry(_ context.Context, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entryID]; !ok {
		return ErrNotFound
	}
	delete(r.entries, entryID)
	return nil
}

func (r *MemoryQueueRepo) ListByRoom(_ context.Context, roomID string, statuses ...domain.Status) ([]domain.QueueEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.QueueEntry{}
	for _, e := range r.entries {
		if e.RoomID != roomID {
			continue
		}
		if len(statuses) > 0 && !statusIn(e.Status, statuses) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *MemoryQueueRepo) ListByStatus(_ context.Context, status domain.Status) ([]domain.QueueEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.QueueEntry{}
	for _, e := range r.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryQueueRepo) ListByRoomDay(_ context.Context, roomID string, day time.Time) ([]domain.QueueEntry, error) {
	day = domain.DayOf(day)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.QueueEntry{}
	for _, e := range r.entries {
		if e.RoomID == roomID && e.Day().Equal(day) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryQueueRepo) MaxTicketNumber(_ context.Context, roomID string, day time.Time) (int, error) {
	day = domain.DayOf(day)
	r.mu.RLock()
	defer r.mu.RUnlock()
	max := 0
	for _, e := range r.entries {
		if e.RoomID == roomID && e.Day().Equal(day) && e.TicketNumber > max {
			max = e.TicketNumber
		}
	}
	return max, nil
}

func statusIn(s domain.Status, set []domain.Status) bool {
	for _, want := range set {
		if s == want {
			return true
		}
	}
	return false
}
