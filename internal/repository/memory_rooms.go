package repository

import (
	"context"
	"sort"
	"sync"

	"voucher-queue/internal/domain"
)

// MemoryRoomsRepo supports room management when DB is disabled.
type MemoryRoomsRepo struct {
	mu    sync.RWMutex
	rooms map[string]domain.Room // roomID -> room
}

var _ RoomsRepo = (*MemoryRoomsRepo)(nil)

func NewMemoryRoomsRepo() *MemoryRoomsRepo {
	return &MemoryRoomsRepo{
		rooms: map[string]domain.Room{},
	}
}

func (r *MemoryRoomsRepo) ListRooms(_ context.Context) ([]domain.Room, error) {
	return r.list(func(domain.Room) bool { return true }), nil
}

func (r *MemoryRoomsRepo) ListActiveRooms(_ context.Context) ([]domain.Room, error) {
	return r.list(func(rm domain.Room) bool { return rm.Active }), nil
}

func (r *MemoryRoomsRepo) list(keep func(domain.Room) bool) []domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]domain.Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		if keep(rm) {
			all = append(all, rm)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all
}

func (r *MemoryRoomsRepo) GetRoom(_ context.Context, roomID string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := rm
	return &cp, nil
}

func (r *MemoryRoomsRepo) CreateRoom(_ context.Context, rm *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[rm.ID] = *rm
	return nil
}

func (r *MemoryRoomsRepo) UpdateRoom(_ context.Context, rm *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[rm.ID]; !ok {
		return ErrNotFound
	}
	r.rooms[rm.ID] = *rm
	return nil
}

func (r *MemoryRoomsRepo) DeleteRoom(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		return ErrNotFound
	}
	delete(r.rooms, roomID)
	return nil
}
