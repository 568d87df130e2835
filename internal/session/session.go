// Package session owns the lifecycle of one browser session's identity: initialization,
// silent refresh, interactive login and logout. Sessions are created and looked up
// through a Manager; nothing in this package is a package-level singleton.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	domainauth "github.com/atparui/rms-console/internal/domain/auth"
	"github.com/atparui/rms-console/internal/ports"
	"golang.org/x/sync/singleflight"
)

const (
	// pendingLoginTTL bounds how long a login challenge waits for its callback.
	pendingLoginTTL = 10 * time.Minute
	// maxPendingLogins caps outstanding challenges per session (one per open tab, roughly).
	maxPendingLogins = 8
	// expiryRenewTimeout bounds a timer-driven renewal, which has no caller context.
	expiryRenewTimeout = 30 * time.Second
)

// Timer is the handle returned by a Scheduler.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d on another goroutine; it must never call f synchronously.
type Scheduler func(d time.Duration, f func()) Timer

// SystemScheduler schedules on the runtime timer.
func SystemScheduler(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Options groups dependencies shared by every session a Manager creates.
type Options struct {
	Provider    ports.IdentityProvider
	Store       ports.TokenStore
	Logger      *slog.Logger
	CallbackURL string           // optional callback override passed to the provider
	Now         func() time.Time // defaults to time.Now
	Schedule    Scheduler        // defaults to SystemScheduler
}

type pendingLogin struct {
	challenge   ports.LoginChallenge
	redirectURL string
	returnTo    string
	createdAt   time.Time
}

// Session is the identity state of one browser session.
type Session struct {
	id     string
	idp    ports.IdentityProvider
	store  ports.TokenStore
	logger *slog.Logger
	cb     string
	now    func() time.Time
	sched  Scheduler

	startOnce sync.Once
	initOnce  sync.Once
	initErr   error
	done      chan struct{}

	flight   singleflight.Group
	lastSeen atomic.Int64

	mu            sync.RWMutex
	ready         bool
	initialized   bool
	authenticated bool
	closed        bool
	token         domainauth.Token
	profile       *domainauth.Profile
	pending       map[string]pendingLogin
	timer         Timer
}

func newSession(id string, opts Options) *Session {
	s := &Session{
		id:      id,
		idp:     opts.Provider,
		store:   opts.Store,
		logger:  opts.Logger,
		cb:      opts.CallbackURL,
		now:     opts.Now,
		sched:   opts.Schedule,
		done:    make(chan struct{}),
		pending: make(map[string]pendingLogin),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sched == nil {
		s.sched = SystemScheduler
	}
	s.touch()
	return s
}

// ID returns the session identifier carried by the browser cookie.
func (s *Session) ID() string { return s.id }

// Done is closed once Initialize has settled.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start runs Initialize in the background exactly once and returns Done.
func (s *Session) Start(ctx context.Context) <-chan struct{} {
	s.startOnce.Do(func() {
		go func() { _ = s.Initialize(ctx) }()
	})
	return s.done
}

// Initialize constructs the identity client, reads the mirrored token hint once and
// settles the session as authenticated or not. Concurrent callers wait for the same run.
// The returned error is informational; the session is initialized either way.
func (s *Session) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.initialize(ctx)
		s.mu.Lock()
		s.initialized = true
		s.mu.Unlock()
		close(s.done)
	})
	return s.initErr
}

func (s *Session) initialize(ctx context.Context) error {
	if err := s.idp.Ensure(ctx); err != nil {
		s.logger.WarnContext(ctx, "identity client construction failed", "session_id", s.id, "error", err)
		return fmt.Errorf("construct identity client: %w", err)
	}
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	hint, ok, err := s.store.Load(ctx, s.id)
	if err != nil {
		s.logger.WarnContext(ctx, "token mirror read failed", "session_id", s.id, "error", err)
		return nil
	}
	if !ok || hint.IsZero() {
		return nil
	}

	s.mu.Lock()
	s.token = hint
	s.mu.Unlock()

	tok := hint
	if hint.ExpiresWithin(domainauth.RefreshBuffer, s.now()) {
		tok, err = s.renew(ctx, hint.AccessToken)
		if err != nil {
			return nil
		}
	} else {
		s.adopt(ctx, hint)
	}

	s.loadProfile(ctx, tok)
	s.logger.InfoContext(ctx, "session restored from token mirror", "session_id", s.id)
	return nil
}

// inherit settles s with the state of from: readiness, token and profile. Pending login
// challenges stay behind. The token is mirrored under the new ID.
func (s *Session) inherit(ctx context.Context, from *Session) {
	from.mu.RLock()
	ready, authenticated, tok := from.ready, from.authenticated, from.token
	var profile *domainauth.Profile
	if from.profile != nil {
		p := *from.profile
		profile = &p
	}
	from.mu.RUnlock()

	s.initOnce.Do(func() {
		s.mu.Lock()
		s.ready = ready
		s.initialized = true
		s.profile = profile
		s.mu.Unlock()
		close(s.done)
	})
	if authenticated {
		s.adopt(ctx, tok)
	}
}

// Login starts an interactive login and returns the identity provider URL to navigate to.
// returnTo is remembered and handed back by CompleteLogin.
func (s *Session) Login(ctx context.Context, returnTo string) (string, error) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	if !ready {
		return "", ErrNotInitialized
	}

	ch, err := s.idp.Begin(ctx, ports.BeginInput{RedirectURL: s.cb})
	if err != nil {
		return "", fmt.Errorf("begin login: %w", err)
	}

	now := s.now()
	s.mu.Lock()
	s.prunePendingLocked(now)
	s.pending[ch.State] = pendingLogin{challenge: ch, redirectURL: s.cb, returnTo: returnTo, createdAt: now}
	s.mu.Unlock()

	return ch.AuthURL, nil
}

// CompleteLogin finishes the redirect half of login: it checks state, exchanges the code,
// stores and mirrors the token and loads the profile. It returns the returnTo given to Login.
func (s *Session) CompleteLogin(ctx context.Context, code, state string) (string, error) {
	now := s.now()
	s.mu.Lock()
	p, ok := s.pending[state]
	delete(s.pending, state)
	s.mu.Unlock()
	if !ok || state == "" || now.Sub(p.createdAt) > pendingLoginTTL {
		return "", ErrInvalidState
	}

	tok, err := s.idp.Exchange(ctx, ports.ExchangeInput{
		Code:        code,
		Nonce:       p.challenge.Nonce,
		Verifier:    p.challenge.Verifier,
		RedirectURL: p.redirectURL,
	})
	if err != nil {
		return "", fmt.Errorf("complete login: %w", err)
	}

	s.adopt(ctx, tok)
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	s.loadProfile(ctx, tok)

	s.logger.InfoContext(ctx, "login completed", "session_id", s.id)
	return p.returnTo, nil
}

// Logout clears the mirror and the in-memory token and returns the end-session URL.
// When the provider cannot build one, redirectURI is returned.
func (s *Session) Logout(ctx context.Context, redirectURI string) (string, error) {
	s.mu.Lock()
	idToken := s.token.IDToken
	ready := s.ready
	s.clearLocked()
	clear(s.pending)
	s.mu.Unlock()

	var errs []error
	if err := s.store.Delete(ctx, s.id); err != nil {
		errs = append(errs, fmt.Errorf("delete token mirror: %w", err))
	}

	target := redirectURI
	if ready {
		u, err := s.idp.LogoutURL(ctx, ports.LogoutInput{IDToken: idToken, RedirectURL: redirectURI})
		if err != nil {
			errs = append(errs, fmt.Errorf("build logout url: %w", err))
		} else if u != "" {
			target = u
		}
	}
	return target, errors.Join(errs...)
}

// GetToken returns an access token with at least RefreshBuffer of validity left.
// Inside the buffer it performs one refresh, shared by concurrent callers. On refresh
// failure the session requires interactive login and ErrLoginRequired is returned.
func (s *Session) GetToken(ctx context.Context) (string, error) {
	s.touch()
	s.mu.RLock()
	initialized, authenticated, tok := s.initialized, s.authenticated, s.token
	s.mu.RUnlock()

	if !initialized {
		return "", ErrNotInitialized
	}
	if !authenticated || tok.IsZero() {
		return "", ErrLoginRequired
	}
	if !tok.ExpiresWithin(domainauth.RefreshBuffer, s.now()) {
		return tok.AccessToken, nil
	}

	fresh, err := s.renew(ctx, tok.AccessToken)
	if err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

// renew is the single refresh-or-relogin path used by GetToken, the expiry timer and
// initialization. seen is the access token the caller judged stale; if the session has
// moved past it, the current token is returned without another grant.
func (s *Session) renew(ctx context.Context, seen string) (domainauth.Token, error) {
	v, err, _ := s.flight.Do("renew", func() (any, error) {
		ctx := context.WithoutCancel(ctx)

		s.mu.RLock()
		cur := s.token
		s.mu.RUnlock()

		if cur.IsZero() {
			return domainauth.Token{}, ErrLoginRequired
		}
		if cur.AccessToken != seen {
			return cur, nil
		}
		if !cur.CanRefresh() {
			s.requireLogin(ctx, errors.New("no refresh token"))
			return domainauth.Token{}, ErrLoginRequired
		}

		next, err := s.idp.Refresh(ctx, cur.RefreshToken)
		if err != nil {
			s.requireLogin(ctx, err)
			return domainauth.Token{}, ErrLoginRequired
		}
		if next.RefreshToken == "" {
			next.RefreshToken = cur.RefreshToken
		}
		if next.IDToken == "" {
			next.IDToken = cur.IDToken
		}
		s.adopt(ctx, next)
		s.logger.DebugContext(ctx, "token refreshed", "session_id", s.id, "expires_at", next.Expiry)
		return next, nil
	})
	if err != nil {
		return domainauth.Token{}, err
	}
	return v.(domainauth.Token), nil
}

// adopt makes tok the session token, mirrors it and reschedules expiry handling.
func (s *Session) adopt(ctx context.Context, tok domainauth.Token) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.token = tok
	s.authenticated = true
	s.scheduleLocked(tok)
	s.mu.Unlock()

	if err := s.store.Save(ctx, s.id, tok); err != nil {
		s.logger.WarnContext(ctx, "token mirror write failed", "session_id", s.id, "error", err)
	}
}

// scheduleLocked replaces the expiry timer with one firing RefreshBuffer before expiry.
func (s *Session) scheduleLocked(tok domainauth.Token) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if tok.Expiry.IsZero() {
		return
	}
	d := max(tok.Expiry.Sub(s.now())-domainauth.RefreshBuffer, 0)
	seen := tok.AccessToken
	s.timer = s.sched(d, func() { s.onExpiry(seen) })
}

func (s *Session) onExpiry(seen string) {
	s.mu.RLock()
	skip := s.closed || !s.authenticated || s.token.AccessToken != seen
	s.mu.RUnlock()
	if skip {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), expiryRenewTimeout)
	defer cancel()
	if _, err := s.renew(ctx, seen); err != nil {
		s.logger.InfoContext(ctx, "token expiry renewal failed", "session_id", s.id, "error", err)
	}
}

func (s *Session) requireLogin(ctx context.Context, cause error) {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()

	if err := s.store.Delete(ctx, s.id); err != nil {
		s.logger.WarnContext(ctx, "token mirror delete failed", "session_id", s.id, "error", err)
	}
	s.logger.InfoContext(ctx, "session requires interactive login", "session_id", s.id, "cause", cause)
}

func (s *Session) clearLocked() {
	s.token = domainauth.Token{}
	s.authenticated = false
	s.profile = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) loadProfile(ctx context.Context, tok domainauth.Token) {
	p, err := s.idp.Profile(ctx, tok)
	if err != nil {
		s.logger.WarnContext(ctx, "profile load failed", "session_id", s.id, "error", err)
		return
	}
	s.mu.Lock()
	if s.authenticated {
		s.profile = &p
	}
	s.mu.Unlock()
}

func (s *Session) prunePendingLocked(now time.Time) {
	var oldestState string
	var oldest time.Time
	for state, p := range s.pending {
		if now.Sub(p.createdAt) > pendingLoginTTL {
			delete(s.pending, state)
			continue
		}
		if oldestState == "" || p.createdAt.Before(oldest) {
			oldestState, oldest = state, p.createdAt
		}
	}
	if len(s.pending) >= maxPendingLogins && oldestState != "" {
		delete(s.pending, oldestState)
	}
}

// Snapshot returns an immutable copy of the observable session state.
func (s *Session) Snapshot() domainauth.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := domainauth.Snapshot{
		ID:            s.id,
		Initialized:   s.initialized,
		Authenticated: s.authenticated,
		ExpiresAt:     s.token.Expiry,
		State:         domainauth.StateOf(s.initialized, s.authenticated),
	}
	if s.profile != nil {
		p := *s.profile
		snap.Profile = &p
	}
	return snap
}

// State returns the access guard state.
func (s *Session) State() domainauth.GuardState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domainauth.StateOf(s.initialized, s.authenticated)
}

func (s *Session) touch() { s.lastSeen.Store(s.now().UnixNano()) }

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// close stops background work; the mirror is kept so a later request can rehydrate.
func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
}
