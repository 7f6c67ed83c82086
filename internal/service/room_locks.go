package service

import "sync"

// roomLocks is a lock table keyed by room ID. Ticket assignment and
// call-next selection for one room must run in a critical section; a
// per-room lock keeps unrelated rooms fully concurrent.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: map[string]*sync.Mutex{}}
}

// Lock acquires the room's lock, creating it on first use, and returns the
// unlock function.
func (l *roomLocks) Lock(roomID string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[roomID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[roomID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
