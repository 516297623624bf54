// Package store holds the two in-memory data sets the bot runs on: the set of
// users known to have interacted with it (broadcast targets) and the ledger of
// join requests observed but not yet resolved. Neither survives a restart.
package store

import (
	"sync"
	"time"
)

type PendingKey struct {
	ChatID int64
	UserID int64
}

// Store is safe for concurrent use; the HTTP status handler reads counters
// from a different goroutine than the update handlers that mutate state.
type Store struct {
	mu      sync.RWMutex
	members map[int64]struct{}
	pending map[PendingKey]time.Time
}

func New() *Store {
	return &Store{
		members: make(map[int64]struct{}),
		pending: make(map[PendingKey]time.Time),
	}
}

// AddMember is an idempotent insert.
func (s *Store) AddMember(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[userID] = struct{}{}
}

// RemoveMember is an idempotent delete, used only when a send proves the user
// unreachable.
func (s *Store) RemoveMember(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, userID)
}

func (s *Store) HasMember(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[userID]
	return ok
}

func (s *Store) MemberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Members returns a snapshot; concurrent adds during a broadcast are neither
// crashed on nor guaranteed delivery.
func (s *Store) Members() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	return out
}

// TrackPending upserts the ledger entry for (chat, user), refreshing the
// timestamp on re-observation instead of duplicating.
func (s *Store) TrackPending(chatID, userID int64, observedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[PendingKey{ChatID: chatID, UserID: userID}] = observedAt
}

// ResolvePending drops the ledger entry once approval succeeded or the request
// was abandoned.
func (s *Store) ResolvePending(chatID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, PendingKey{ChatID: chatID, UserID: userID})
}

func (s *Store) PendingSince(chatID, userID int64) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.pending[PendingKey{ChatID: chatID, UserID: userID}]
	return t, ok
}

func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}
