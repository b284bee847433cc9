package auth

import (
	"errors"
	"sync"
)

// errEmptyCredential is returned when an empty credential would be stored
var errEmptyCredential = errors.New("credential must not be empty")

// CredentialStore holds at most one bearer credential.
// The zero value is an empty store, safe for concurrent use.
type CredentialStore struct {
	mu    sync.RWMutex
	token string
}

// Get returns the current credential and whether one is present
func (s *CredentialStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Set replaces the credential. Empty values are rejected so the store is
// always either absent or non-empty.
func (s *CredentialStore) Set(token string) error {
	if token == "" {
		return errEmptyCredential
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Clear removes the credential
func (s *CredentialStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// CompareAndClear removes the credential only if it still equals stale.
// Returns true if the store was cleared.
func (s *CredentialStore) CompareAndClear(stale string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || s.token != stale {
		return false
	}
	s.token = ""
	return true
}
