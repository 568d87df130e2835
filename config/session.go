package config

import (
	"strings"
	"time"
)

// TokenMirror selects where session tokens are mirrored for rehydration.
type TokenMirror string

const (
	TokenMirrorRedis  TokenMirror = "redis"
	TokenMirrorMemory TokenMirror = "memory"
)

// SessionConfig controls the per-browser session lifecycle.
type SessionConfig struct {
	Mirror        TokenMirror   `env:"TOKEN_MIRROR"           envDefault:"redis" validate:"oneof=redis memory"`
	MirrorTTL     time.Duration `env:"TOKEN_MIRROR_TTL"       envDefault:"12h"`
	MirrorPrefix  string        `env:"TOKEN_MIRROR_PREFIX"    envDefault:"rms:token:"`
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL"       envDefault:"2h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	CookieName    string        `env:"SESSION_COOKIE_NAME"    envDefault:"rms_session" validate:"required"`
}

// Sanitize restores defaults for out-of-range values.
func (s *SessionConfig) Sanitize() {
	s.Mirror = TokenMirror(strings.ToLower(strings.TrimSpace(string(s.Mirror))))
	if s.Mirror == "" {
		s.Mirror = TokenMirrorRedis
	}
	if s.MirrorTTL <= 0 {
		s.MirrorTTL = 12 * time.Hour
	}
	if s.IdleTTL <= 0 {
		s.IdleTTL = 2 * time.Hour
	}
	if s.SweepInterval <= 0 {
		s.SweepInterval = time.Minute
	}
	if s.SweepInterval > s.IdleTTL {
		s.SweepInterval = s.IdleTTL
	}
	s.CookieName = strings.TrimSpace(s.CookieName)
}
