// Package memory provides in-process adapters used when no shared store is configured.
package memory

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/atparui/rms-console/internal/domain/auth"
)

// TokenStore is an in-memory token mirror. It only survives for the life of the process.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]domainauth.Token
}

// NewTokenStore creates an empty in-memory token mirror.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]domainauth.Token)}
}

func (s *TokenStore) Save(_ context.Context, sessionID string, tok domainauth.Token) error {
	if sessionID == "" {
		return errors.New("session ID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.IsZero() {
		delete(s.tokens, sessionID)
		return nil
	}
	s.tokens[sessionID] = tok
	return nil
}

func (s *TokenStore) Load(_ context.Context, sessionID string) (domainauth.Token, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[sessionID]
	return tok, ok, nil
}

func (s *TokenStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.tokens, sessionID)
	s.mu.Unlock()
	return nil
}

// Len reports how many sessions currently have a mirrored token.
func (s *TokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
