package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	domainauth "github.com/atparui/rms-console/internal/domain/auth"
	"github.com/atparui/rms-console/internal/observability/metrics"
	"github.com/atparui/rms-console/internal/session"
)

// DefaultInitWait bounds how long the guard blocks on a new session's initialization.
const DefaultInitWait = 2 * time.Second

// waitingRefreshSeconds is the reload delay of the waiting page and Retry-After for API callers.
const waitingRefreshSeconds = 1

// AccessGuardOptions configures an AccessGuard.
type AccessGuardOptions struct {
	Sessions *session.Manager
	Cookie   SessionCookie
	InitWait time.Duration // defaults to DefaultInitWait; negative means do not wait
	Renderer *TemplateRenderer
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// AccessGuard gates protected routes on the state of the caller's session.
type AccessGuard struct {
	sessions *session.Manager
	cookie   SessionCookie
	initWait time.Duration
	renderer *TemplateRenderer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewAccessGuard creates an AccessGuard. Sessions and Renderer are required.
func NewAccessGuard(opts AccessGuardOptions) *AccessGuard {
	if opts.Sessions == nil {
		panic("AccessGuard requires a session manager")
	}
	if opts.Renderer == nil {
		panic("AccessGuard requires a template renderer")
	}
	if opts.InitWait == 0 {
		opts.InitWait = DefaultInitWait
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AccessGuard{
		sessions: opts.Sessions,
		cookie:   opts.Cookie,
		initWait: opts.InitWait,
		renderer: opts.Renderer,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// Session returns the caller's session, creating it (and setting the cookie) when needed,
// and starts its initialization in the background.
func (g *AccessGuard) Session(w http.ResponseWriter, r *http.Request) *session.Session {
	s, created := g.sessions.GetOrCreate(g.cookie.Read(r))
	if created {
		g.cookie.Set(w, r, s.ID())
	}
	// Initialization outlives the request that triggered it.
	s.Start(context.WithoutCancel(r.Context()))
	return s
}

// Wrap protects next. Only authenticated sessions reach it.
func (g *AccessGuard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := g.Session(w, r)
		state := g.settle(r.Context(), s)
		g.metrics.ObserveGuard(string(state))

		switch state {
		case domainauth.StateAuthenticated:
			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), s)))
		case domainauth.StateUnauthenticated:
			g.requireLogin(w, r, s)
		default:
			g.waiting(w, r)
		}
	})
}

// settle waits briefly for an uninitialized session so a fresh page load usually skips the
// waiting page.
func (g *AccessGuard) settle(ctx context.Context, s *session.Session) domainauth.GuardState {
	if st := s.State(); st != domainauth.StateUninitialized || g.initWait < 0 {
		return st
	}
	t := time.NewTimer(g.initWait)
	defer t.Stop()
	select {
	case <-s.Done():
	case <-t.C:
	case <-ctx.Done():
	}
	return s.State()
}

func (g *AccessGuard) waiting(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		w.Header().Set("Retry-After", strconv.Itoa(waitingRefreshSeconds))
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "session_initializing",
			Err:     errors.New("session is initializing"),
		})
		return
	}
	if IsHTMX(r) {
		// A fragment swap cannot show the waiting page; reload the whole page instead.
		SetHXRefresh(w)
		w.WriteHeader(http.StatusOK)
		return
	}
	g.renderer.RenderOrError(w, http.StatusOK, tmplWaiting, GatePage{
		Title:          "Preparing your session",
		Message:        "Preparing your session…",
		RefreshSeconds: waitingRefreshSeconds,
	})
}

func (g *AccessGuard) requireLogin(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	authURL, err := s.Login(r.Context(), redirectPathForRequest(r))
	if err != nil {
		if !errors.Is(err, session.ErrNotInitialized) {
			g.logger.ErrorContext(r.Context(), "failed to start login", "session_id", s.ID(), "error", err)
		}
		// A fresh session on the next load retries identity client construction.
		g.sessions.Delete(s.ID())
		if IsHTMX(r) {
			SetHXRefresh(w)
			w.WriteHeader(http.StatusOK)
			return
		}
		g.renderer.RenderOrError(w, http.StatusOK, tmplRedirecting, GatePage{
			Title:          "Redirecting to login",
			Message:        "Redirecting to login…",
			RefreshSeconds: 3,
		})
		return
	}

	if IsHTMX(r) {
		SetHXRedirect(w, authURL)
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Location", authURL)
	g.renderer.RenderOrError(w, http.StatusSeeOther, tmplRedirecting, GatePage{
		Title:   "Redirecting to login",
		Message: "Redirecting to login…",
		Target:  authURL,
	})
}
