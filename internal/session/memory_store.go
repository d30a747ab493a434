package session

import "sync"

// MemoryStore implements Store with in-memory storage.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[int64]*entry),
	}
}

func (s *MemoryStore) Acquire(userID int64) (*Session, func()) {
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()

	if !ok {
		s.mu.Lock()
		// re-check, another event for the same new user may have raced here
		if e, ok = s.entries[userID]; !ok {
			e = &entry{sess: &Session{UserID: userID, State: StateIdle}}
			s.entries[userID] = e
		}
		s.mu.Unlock()
	}

	e.mu.Lock()
	return e.sess, e.mu.Unlock
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
