package auth

import (
	"sync"

	"github.com/caloriescount/auth-service/internal/domain"
)

// ChallengeStore holds at most one outstanding verification challenge per
// username. It lives for the life of the process; nothing is persisted and
// nothing expires on its own — expiry is decided by the caller against
// Challenge.ExpiresAt. Safe for concurrent use from independent requests.
type ChallengeStore struct {
	mu         sync.RWMutex
	byUsername map[string]domain.Challenge
}

// NewChallengeStore returns an empty store. It is constructed once at startup
// and injected into the service; it is not a package-level singleton.
func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{byUsername: map[string]domain.Challenge{}}
}

// Put stores the challenge, unconditionally replacing any existing entry for
// the same username. Last writer wins under concurrent logins for one user.
func (s *ChallengeStore) Put(challenge domain.Challenge) {
	s.mu.Lock()
	s.byUsername[challenge.Username] = challenge
	s.mu.Unlock()
}

// Get returns the outstanding challenge for username, if any. It never
// mutates the store, even for expired entries.
func (s *ChallengeStore) Get(username string) (domain.Challenge, bool) {
	s.mu.RLock()
	challenge, ok := s.byUsername[username]
	s.mu.RUnlock()
	return challenge, ok
}

// Delete removes the challenge for username. Deleting an absent key is a no-op.
func (s *ChallengeStore) Delete(username string) {
	s.mu.Lock()
	delete(s.byUsername, username)
	s.mu.Unlock()
}

// Len reports the number of outstanding challenges, expired ones included.
func (s *ChallengeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUsername)
}
