package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atparui/rms-console/internal/adapters/memory"
	"github.com/atparui/rms-console/internal/domain/menu"
	mockauth "github.com/atparui/rms-console/internal/mocks/auth"
	"github.com/atparui/rms-console/internal/observability/metrics"
	"github.com/atparui/rms-console/internal/ports"
	"github.com/atparui/rms-console/internal/service"
	"github.com/atparui/rms-console/internal/session"
	"github.com/stretchr/testify/require"
)

const testCSRF = "test-csrf-token"

type harness struct {
	handler  http.Handler
	idp      *mockauth.FakeIdentityProvider
	store    *memory.TokenStore
	sessions *session.Manager
	nav      *service.NavigationService
	metrics  *metrics.Metrics
	fetches  atomic.Int32
	tree     atomic.Pointer[[]menu.Node]
	fetchErr atomic.Pointer[error]
}

type harnessOptions struct {
	idp      *mockauth.FakeIdentityProvider
	initWait time.Duration
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleTree() []menu.Node {
	return []menu.Node{
		{ID: 1, Label: "Dashboard", RoutePath: "/"},
		{ID: 2, Label: "Restaurants", RoutePath: "/restaurants", Children: []menu.Node{
			{ID: 3, Label: "Branches", RoutePath: "/restaurants/branches"},
		}},
	}
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	h := &harness{
		idp:     opts.idp,
		store:   memory.NewTokenStore(),
		metrics: metrics.New(),
	}
	if h.idp == nil {
		h.idp = mockauth.NewFakeIdentityProvider()
	}
	tree := sampleTree()
	h.tree.Store(&tree)

	h.sessions = session.NewManager(session.ManagerOptions{
		Session: session.Options{
			Provider:    h.idp,
			Store:       h.store,
			Logger:      discardLogger(),
			CallbackURL: "http://console.test/auth/callback",
		},
	})
	h.nav = service.NewNavigationService(service.NavigationServiceOptions{
		Fetch: func(ctx context.Context, tokens ports.TokenSource) ([]menu.Node, error) {
			h.fetches.Add(1)
			if _, err := tokens.GetToken(ctx); err != nil {
				return nil, err
			}
			if errp := h.fetchErr.Load(); errp != nil && *errp != nil {
				return nil, *errp
			}
			return *h.tree.Load(), nil
		},
		Telemetry: service.NavigationTelemetry{Logger: discardLogger()},
	})

	initWait := opts.initWait
	if initWait == 0 {
		initWait = time.Second
	}
	handler, err := NewRouter(RouterServices{
		Sessions: h.sessions,
		Nav:      h.nav,
		Metrics:  h.metrics,
		Config: RouterConfig{
			InitWait:    initWait,
			BaseURL:     "http://console.test",
			MetricsPath: "/metrics",
			TemplateFS:  os.DirFS(TemplatePathFromTest),
		},
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	h.handler = handler
	return h
}

// login runs a full login on a new session and returns it.
func (h *harness) login(t *testing.T) *session.Session {
	t.Helper()
	ctx := context.Background()
	s := h.sessions.Create()
	require.NoError(t, s.Initialize(ctx))
	authURL, err := s.Login(ctx, "/")
	require.NoError(t, err)
	_, err = s.CompleteLogin(ctx, "code", stateFromAuthURL(t, authURL))
	require.NoError(t, err)
	return s
}

func (h *harness) do(r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, r)
	return rr
}

func stateFromAuthURL(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func withSession(r *http.Request, id string) *http.Request {
	r.AddCookie(&http.Cookie{Name: DefaultSessionCookieName, Value: id})
	return r
}

func withCSRF(r *http.Request) *http.Request {
	r.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: testCSRF})
	r.Header.Set(CSRFHeaderName, testCSRF)
	return r
}

func browserGet(target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("Accept", "text/html,application/xhtml+xml")
	return r
}

func cookieFrom(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func testRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	r, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: os.DirFS(TemplatePathFromTest),
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	return r
}
