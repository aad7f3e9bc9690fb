package history

import (
	"sync"
)

// Store is the ordered, in-memory collection of chat sessions.
// It owns its sessions: everything going in or out is copied.
type Store struct {
	mu       sync.RWMutex
	sessions []Session
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{sessions: []Session{}}
}

// Replace swaps the whole collection for the given sessions
func (s *Store) Replace(sessions []Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make([]Session, len(sessions))
	for i, sess := range sessions {
		s.sessions[i] = sess.Clone()
	}
}

// Prepend inserts a session at the front of the collection
func (s *Store) Prepend(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = append([]Session{session.Clone()}, s.sessions...)
}

// Get returns a copy of the session with the given id
func (s *Store) Get(id SessionID) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return Session{}, false
}

// Sessions returns a copy of every session in store order
func (s *Store) Sessions() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

// Remove deletes the session with the given id
func (s *Store) Remove(id SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	return true
}

// RemoveEmptyPending drops every pending session that has no messages and
// returns how many were removed
func (s *Store) RemoveEmptyPending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.sessions[:0]
	removed := 0
	for _, sess := range s.sessions {
		if sess.ID.IsPending() && len(sess.Messages) == 0 {
			removed++
			continue
		}
		kept = append(kept, sess)
	}
	s.sessions = kept
	return removed
}

// Update applies fn to the session with the given id in place.
// fn may change the session id. Returns false if no such session exists.
func (s *Store) Update(id SessionID, fn func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	sess := s.sessions[i].Clone()
	fn(&sess)
	s.sessions[i] = sess
	return true
}

// Clear removes every session
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = []Session{}
}

// indexOf finds a session by id (must be called with lock held)
func (s *Store) indexOf(id SessionID) int {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}
