package redis

// Package redis provides Redis-based adapters for the console.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/atparui/rms-console/internal/domain/auth"
	"github.com/redis/go-redis/v9"
)

// DefaultTokenTTL bounds how long a mirrored token survives without being rewritten.
const DefaultTokenTTL = 12 * time.Hour

// TokenStore mirrors session tokens in Redis, one key per session.
type TokenStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// TokenStoreOptions configures a TokenStore.
type TokenStoreOptions struct {
	Prefix string        // key prefix, defaults to "rms:token:"
	TTL    time.Duration // key lifetime, defaults to DefaultTokenTTL
}

// NewTokenStore creates a new Redis-based token mirror.
func NewTokenStore(client redis.UniversalClient, opts TokenStoreOptions) *TokenStore {
	if opts.Prefix == "" {
		opts.Prefix = "rms:token:"
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTokenTTL
	}
	return &TokenStore{client: client, prefix: opts.Prefix, ttl: opts.TTL}
}

func (s *TokenStore) Save(ctx context.Context, sessionID string, tok domainauth.Token) error {
	if sessionID == "" {
		return errors.New("session ID cannot be empty")
	}
	if tok.IsZero() {
		return s.Delete(ctx, sessionID)
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	// A token that cannot be refreshed is worthless past its expiry.
	ttl := s.ttl
	if !tok.CanRefresh() && !tok.Expiry.IsZero() {
		ttl = min(ttl, time.Until(tok.Expiry))
		if ttl <= 0 {
			return s.Delete(ctx, sessionID)
		}
	}

	return s.client.Set(ctx, s.prefix+sessionID, data, ttl).Err()
}

func (s *TokenStore) Load(ctx context.Context, sessionID string) (domainauth.Token, bool, error) {
	if sessionID == "" {
		return domainauth.Token{}, false, nil
	}

	data, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Token{}, false, nil
		}
		return domainauth.Token{}, false, fmt.Errorf("redis get: %w", err)
	}

	var tok domainauth.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		// A corrupt mirror is treated as absent; the in-memory session is authoritative anyway.
		if delErr := s.Delete(ctx, sessionID); delErr != nil {
			return domainauth.Token{}, false, fmt.Errorf("cleanup corrupt token: %w", delErr)
		}
		return domainauth.Token{}, false, nil
	}
	return tok, !tok.IsZero(), nil
}

func (s *TokenStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+sessionID).Err()
}
