package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/atparui/rms-console/internal/adapters/memory"
	domainauth "github.com/atparui/rms-console/internal/domain/auth"
	"github.com/atparui/rms-console/internal/mocks"
	mockauth "github.com/atparui/rms-console/internal/mocks/auth"
	"github.com/atparui/rms-console/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fakeScheduler records timers; tests fire them explicitly.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) schedule(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return t
}

func (s *fakeScheduler) last(t *testing.T) *fakeTimer {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.timers, "no timer scheduled")
	return s.timers[len(s.timers)-1]
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

type harness struct {
	clock *fakeClock
	sched *fakeScheduler
	idp   *mockauth.FakeIdentityProvider
	store *memory.TokenStore
	mgr   *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock: newFakeClock(),
		sched: &fakeScheduler{},
		idp:   mockauth.NewFakeIdentityProvider(),
		store: memory.NewTokenStore(),
	}
	var seq int
	var mu sync.Mutex
	mint := func() domainauth.Token {
		mu.Lock()
		seq++
		n := seq
		mu.Unlock()
		return domainauth.Token{
			AccessToken:  fmt.Sprintf("access-%d", n),
			RefreshToken: fmt.Sprintf("refresh-%d", n),
			IDToken:      fmt.Sprintf("id-%d", n),
			Expiry:       h.clock.Now().Add(5 * time.Minute),
		}
	}
	h.idp.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.Token, error) { return mint(), nil }
	h.idp.RefreshFunc = func(context.Context, string) (domainauth.Token, error) { return mint(), nil }
	h.mgr = NewManager(ManagerOptions{Session: Options{
		Provider: h.idp,
		Store:    h.store,
		Now:      h.clock.Now,
		Schedule: h.sched.schedule,
	}})
	return h
}

// login drives a session through Initialize, Login and CompleteLogin.
func (h *harness) login(t *testing.T) *Session {
	t.Helper()
	ctx := context.Background()
	s := h.mgr.Create()
	require.NoError(t, s.Initialize(ctx))
	_, err := s.Login(ctx, "/")
	require.NoError(t, err)
	_, err = s.CompleteLogin(ctx, "code", "state-1")
	require.NoError(t, err)
	require.Equal(t, domainauth.StateAuthenticated, s.State())
	return s
}

func TestInitialize_NoMirrorSettlesUnauthenticated(t *testing.T) {
	h := newHarness(t)
	s := h.mgr.Create()
	assert.Equal(t, domainauth.StateUninitialized, s.State())

	require.NoError(t, s.Initialize(context.Background()))

	assert.Equal(t, domainauth.StateUnauthenticated, s.State())
	snap := s.Snapshot()
	assert.True(t, snap.Initialized)
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.Profile)

	_, err := s.GetToken(context.Background())
	assert.ErrorIs(t, err, ErrLoginRequired)
	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed after Initialize")
	}
}

func TestInitialize_RunsOnce(t *testing.T) {
	h := newHarness(t)
	s := h.mgr.Create()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Initialize(context.Background())
		}()
	}
	wg.Wait()
	<-s.Start(context.Background())

	assert.Equal(t, 1, h.idp.Calls("Ensure"))
}

func TestGetToken_BeforeInitialize(t *testing.T) {
	h := newHarness(t)
	_, err := h.mgr.Create().GetToken(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitialize_RestoresValidMirror(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.mgr.Create()
	mirrored := domainauth.Token{AccessToken: "mirrored", RefreshToken: "r", Expiry: h.clock.Now().Add(10 * time.Minute)}
	require.NoError(t, h.store.Save(ctx, s.ID(), mirrored))

	require.NoError(t, s.Initialize(ctx))

	assert.Equal(t, domainauth.StateAuthenticated, s.State())
	tok, err := s.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mirrored", tok)
	assert.Zero(t, h.idp.Calls("Refresh"))
	require.NotNil(t, s.Snapshot().Profile)
	assert.Equal(t, "mock.user@example.com", s.Snapshot().Profile.Email)
	assert.Equal(t, 10*time.Minute-domainauth.RefreshBuffer, h.sched.last(t).d)
}

func TestInitialize_RefreshesExpiringMirror(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.mgr.Create()
	require.NoError(t, h.store.Save(ctx, s.ID(), domainauth.Token{
		AccessToken:  "stale",
		RefreshToken: "r",
		Expiry:       h.clock.Now().Add(10 * time.Second),
	}))

	require.NoError(t, s.Initialize(ctx))

	assert.Equal(t, domainauth.StateAuthenticated, s.State())
	assert.Equal(t, 1, h.idp.Calls("Refresh"))
	mirrored, ok, err := h.store.Load(ctx, s.ID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "access-1", mirrored.AccessToken)
}

func TestInitialize_ExpiredMirrorWithoutRefreshToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.mgr.Create()
	require.NoError(t, h.store.Save(ctx, s.ID(), domainauth.Token{AccessToken: "old", Expiry: h.clock.Now().Add(-time.Minute)}))

	require.NoError(t, s.Initialize(ctx))

	assert.Equal(t, domainauth.StateUnauthenticated, s.State())
	assert.Zero(t, h.idp.Calls("Refresh"))
	_, ok, _ := h.store.Load(ctx, s.ID())
	assert.False(t, ok, "unusable mirror should be removed")
}

func TestInitialize_ClientConstructionFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	idp := mocks.NewMockIdentityProvider(ctrl)
	idp.EXPECT().Ensure(gomock.Any()).Return(errors.New("discovery down")).Times(1)

	mgr := NewManager(ManagerOptions{Session: Options{Provider: idp, Store: memory.NewTokenStore()}})
	s := mgr.Create()

	err := s.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, domainauth.StateUnauthenticated, s.State())

	_, err = s.Login(context.Background(), "/")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitialize_MirrorReadFailure(t *testing.T) {
	h := newHarness(t)
	mgr := NewManager(ManagerOptions{Session: Options{
		Provider: h.idp,
		Store:    mockauth.FailingTokenStore{Err: errors.New("redis down")},
	}})
	s := mgr.Create()

	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, domainauth.StateUnauthenticated, s.State())
}

func TestLogin_BeforeInitialize(t *testing.T) {
	h := newHarness(t)
	_, err := h.mgr.Create().Login(context.Background(), "/")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Zero(t, h.idp.Calls("Begin"))
}

func TestLoginAndCompleteLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.mgr.Create()
	require.NoError(t, s.Initialize(ctx))

	authURL, err := s.Login(ctx, "/orders")
	require.NoError(t, err)
	assert.Contains(t, authURL, "https://mock-idp/auth")
	assert.Equal(t, domainauth.StateUnauthenticated, s.State())

	returnTo, err := s.CompleteLogin(ctx, "the-code", "state-1")
	require.NoError(t, err)
	assert.Equal(t, "/orders", returnTo)
	assert.Equal(t, domainauth.StateAuthenticated, s.State())

	in := h.idp.LastExchange()
	assert.Equal(t, "the-code", in.Code)
	assert.Equal(t, "nonce-1", in.Nonce)
	assert.Equal(t, "verifier-1", in.Verifier)

	mirrored, ok, err := h.store.Load(ctx, s.ID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "access-1", mirrored.AccessToken)

	snap := s.Snapshot()
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "Mock User", snap.Profile.DisplayName())
	assert.Equal(t, h.clock.Now().Add(5*time.Minute), snap.ExpiresAt)

	_, err = s.CompleteLogin(ctx, "the-code", "state-1")
	assert.ErrorIs(t, err, ErrInvalidState, "state is single-use")
}

func TestCompleteLogin_UnknownOrExpiredState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.mgr.Create()
	require.NoError(t, s.Initialize(ctx))

	_, err := s.CompleteLogin(ctx, "code", "nope")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = s.CompleteLogin(ctx, "code", "")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Login(ctx, "/")
	require.NoError(t, err)
	h.clock.Advance(pendingLoginTTL + time.Second)
	_, err = s.CompleteLogin(ctx, "code", "state-1")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Zero(t, h.idp.Calls("Exchange"))
}

func TestCompleteLogin_ExchangeFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.idp.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.Token, error) {
		return domainauth.Token{}, errors.New("invalid_grant")
	}
	s := h.mgr.Create()
	require.NoError(t, s.Initialize(ctx))
	_, err := s.Login(ctx, "/")
	require.NoError(t, err)

	_, err = s.CompleteLogin(ctx, "code", "state-1")
	require.Error(t, err)
	assert.Equal(t, domainauth.StateUnauthenticated, s.State())
}

func TestLogin_PendingChallengesAreBounded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.mgr.Create()
	require.NoError(t, s.Initialize(ctx))

	for range maxPendingLogins + 3 {
		_, err := s.Login(ctx, "/")
		require.NoError(t, err)
		h.clock.Advance(time.Second)
	}

	s.mu.RLock()
	n := len(s.pending)
	s.mu.RUnlock()
	assert.LessOrEqual(t, n, maxPendingLogins)

	_, err := s.CompleteLogin(ctx, "code", "state-1")
	assert.ErrorIs(t, err, ErrInvalidState, "oldest challenge is evicted")
}

func TestGetToken_ValidTokenNoRefresh(t *testing.T) {
	h := newHarness(t)
	s := h.login(t)

	tok, err := s.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok)
	assert.Zero(t, h.idp.Calls("Refresh"))
}

func TestGetToken_RefreshesOnceWithinBuffer(t *testing.T) {
	h := newHarness(t)
	s := h.login(t)
	h.clock.Advance(5*time.Minute - 10*time.Second)

	var wg sync.WaitGroup
	results := make([]string, 20)
	errs := make([]error, 20)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.GetToken(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.idp.Calls("Refresh"))
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "access-2", results[i])
	}

	mirrored, _, _ := h.store.Load(context.Background(), s.ID())
	assert.Equal(t, "access-2", mirrored.AccessToken)
	assert.Equal(t, "id-2", mirrored.IDToken)
}

func TestGetToken_RefreshKeepsRotatedFieldsWhenOmitted(t *testing.T) {
	h := newHarness(t)
	s := h.login(t)
	h.idp.RefreshFunc = func(context.Context, string) (domainauth.Token, error) {
		return domainauth.Token{AccessToken: "bare", Expiry: h.clock.Now().Add(5 * time.Minute)}, nil
	}
	h.clock.Advance(5 * time.Minute)

	tok, err := s.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bare", tok)

	mirrored, _, _ := h.store.Load(context.Background(), s.ID())
	assert.Equal(t, "refresh-1", mirrored.RefreshToken)
	assert.Equal(t, "id-1", mirrored.IDToken)
}

func TestGetToken_RefreshFailureRequiresLogin(t *testing.T) {
	h := newHarness(t)
	s := h.login(t)
	h.idp.RefreshFunc = func(context.Context, string) (domainauth.Token, error) {
		return domainauth.Token{}, errors.New("invalid_grant")
	}
	h.clock.Advance(5 * time.Minute)

	tok, err := s.GetToken(context.Background())
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Empty(t, tok)
	assert.Equal(t, domainauth.StateUnauthenticated, s.State())
	assert.Nil(t, s.Snapshot().Profile)

	_, ok, _ := h.store.Load(context.Background(), s.ID())
	assert.False(t, ok)

	_, err = s.GetToken(context.Background())
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Equal(t, 1, h.idp.Calls("Refresh"), "no second refresh after failure")

	_, err = s.Login(context.Background(), "/")
	assert.NoError(t, err, "interactive login is available again")
}

func TestExpiryTimer_RenewsThroughSamePath(t *testing.T) {
	h := newHarness(t)
	s := h.login(t)

	first := h.sched.last(t)
	assert.Equal(t, 5*time.Minute-domainauth.RefreshBuffer, first.d)

	h.clock.Advance(first.d)
	first.f()

	assert.Equal(t, 1, h.idp.Calls("Refresh"))
	assert.True(t, first.isStopped() || h.sched.count() == 2)
	second := h.sched.last(t)
	assert.NotSame(t, first, second)

	tok, err := s.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok)

	// A stale timer firing after the token moved on does nothing.
	first.f()
	assert.Equal(t, 1, h.idp.Calls("Refresh"))
}

func TestExpiryTimer_FailureMarksLoginRequired(t *testing.T) {
	h := newHarness(t)
	s := h.login(t)
	h.idp.RefreshFunc = func(context.Context, string) (domainauth.Token, error) {
		return domainauth.Token{}, errors.New("session not active")
	}

	h.sched.last(t).f()

	assert.Equal(t, domainauth.StateUnauthenticated, s.State())
	_, err := s.GetToken(context.Background())
	assert.ErrorIs(t, err, ErrLoginRequired)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.login(t)
	timer := h.sched.last(t)

	target, err := s.Logout(ctx, "http://localhost:8080/")
	require.NoError(t, err)
	assert.Contains(t, target, "id_token_hint=id-1")
	assert.Contains(t, target, "post_logout_redirect_uri=http://localhost:8080/")

	assert.Equal(t, domainauth.StateUnauthenticated, s.State())
	assert.True(t, timer.isStopped())
	_, ok, _ := h.store.Load(ctx, s.ID())
	assert.False(t, ok)
	_, err = s.GetToken(ctx)
	assert.ErrorIs(t, err, ErrLoginRequired)
}

func TestLogout_BeforeInitializeFallsBackToRedirect(t *testing.T) {
	h := newHarness(t)
	target, err := h.mgr.Create().Logout(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, "/", target)
	assert.Zero(t, h.idp.Calls("LogoutURL"))
}

func TestLogout_ReportsMirrorFailure(t *testing.T) {
	h := newHarness(t)
	mgr := NewManager(ManagerOptions{Session: Options{
		Provider: h.idp,
		Store:    mockauth.FailingTokenStore{Err: errors.New("redis down")},
	}})
	s := mgr.Create()
	require.NoError(t, s.Initialize(context.Background()))

	target, err := s.Logout(context.Background(), "/")
	require.Error(t, err)
	assert.Contains(t, target, "https://mock-idp/logout")
}

func TestProfileFailureKeepsSessionAuthenticated(t *testing.T) {
	h := newHarness(t)
	h.idp.ProfileFunc = func(context.Context, domainauth.Token) (domainauth.Profile, error) {
		return domainauth.Profile{}, errors.New("userinfo down")
	}
	s := h.login(t)

	assert.Equal(t, domainauth.StateAuthenticated, s.State())
	assert.Nil(t, s.Snapshot().Profile)
}

func TestSnapshotIsACopy(t *testing.T) {
	h := newHarness(t)
	s := h.login(t)

	snap := s.Snapshot()
	snap.Profile.Email = "changed@example.com"

	assert.Equal(t, "mock.user@example.com", s.Snapshot().Profile.Email)
}
