// Package session tracks which users are in chat mode.
package session

import "sync"

// Store records the chat-mode flag per user ID. Absence of a marker means the
// user is in single-shot mode. Implementations must be safe for concurrent use.
type Store interface {
	// Active reports whether userID has a chat-mode marker.
	Active(userID int64) bool
	// Activate sets the marker for userID. Setting it twice is a no-op.
	Activate(userID int64)
	// Deactivate removes the marker and reports whether one was present.
	Deactivate(userID int64) bool
	// Clear removes every marker and returns how many were removed.
	Clear() int
	// Len returns the number of active markers.
	Len() int
}

// MemoryStore is an in-process Store. Markers are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	markers map[int64]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{markers: make(map[int64]struct{})}
}

func (s *MemoryStore) Active(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.markers[userID]
	return ok
}

func (s *MemoryStore) Activate(userID int64) {
	s.mu.Lock()
	s.markers[userID] = struct{}{}
	s.mu.Unlock()
}

func (s *MemoryStore) Deactivate(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[userID]; !ok {
		return false
	}
	delete(s.markers, userID)
	return true
}

func (s *MemoryStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.markers)
	s.markers = make(map[int64]struct{})
	return n
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.markers)
}
