package application

import (
	"sync"

	"github.com/google/uuid"
)

// roomLocks serializes check-then-create sequences and availability syncs per
// room. Two simultaneous requests for the same room could otherwise both pass
// the conflict check before either insert commits.
type roomLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// acquire locks the mutex for the given room and returns its unlock func.
func (l *roomLocks) acquire(roomID uuid.UUID) func() {
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
