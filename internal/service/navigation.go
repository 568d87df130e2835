package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/atparui/rms-console/internal/apiclient"
	"github.com/atparui/rms-console/internal/domain/menu"
	"github.com/atparui/rms-console/internal/observability/metrics"
	"github.com/atparui/rms-console/internal/ports"
)

const (
	// DefaultMenuTreeTTL is how long a fetched tree stays fresh.
	DefaultMenuTreeTTL = 5 * time.Minute
	// DefaultNavRetention bounds how long an untouched tree is kept at all.
	DefaultNavRetention = 12 * time.Hour
	defaultNavCapacity  = 1024
)

// TreeFetcher loads the navigation tree on behalf of one caller's credentials.
type TreeFetcher func(ctx context.Context, tokens ports.TokenSource) ([]menu.Node, error)

// APITreeFetcher fetches the tree for appKey through the backend client.
func APITreeFetcher(c *apiclient.Client, appKey string) TreeFetcher {
	return func(ctx context.Context, tokens ports.TokenSource) ([]menu.Node, error) {
		return apiclient.NewAPI(c.WithTokenSource(tokens)).MenuTree(ctx, appKey)
	}
}

// TreeOwner is the caller a tree belongs to: a stable key plus credentials.
// *session.Session satisfies it.
type TreeOwner interface {
	ID() string
	ports.TokenSource
}

// NavView is what the sidebar renders. Items is never nil.
type NavView struct {
	Items     []menu.Node `json:"items"`
	Error     string      `json:"error,omitempty"`
	FetchedAt *time.Time  `json:"fetchedAt,omitempty"`
}

// NavigationConfig tunes caching.
type NavigationConfig struct {
	TTL       time.Duration // freshness; defaults to DefaultMenuTreeTTL
	Capacity  int           // max cached trees
	Retention time.Duration
	Now       func() time.Time
}

// NavigationTelemetry groups optional observability hooks.
type NavigationTelemetry struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// NavigationServiceOptions groups dependencies for NavigationService.
type NavigationServiceOptions struct {
	Fetch     TreeFetcher // Required
	Config    NavigationConfig
	Telemetry NavigationTelemetry
}

type navEntry struct {
	items     []menu.Node
	err       string
	fetchedAt time.Time // last successful fetch; zero if none
	fresh     bool      // false after Refresh or a failed fetch
}

// NavigationService caches one navigation tree per owner. A tree is fresh for TTL
// after a successful fetch; a failed fetch keeps the previous tree and records the error.
type NavigationService struct {
	fetch   TreeFetcher
	ttl     time.Duration
	ret     time.Duration
	now     func() time.Time
	cache   *lru[navEntry]
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewNavigationService constructs a NavigationService.
func NewNavigationService(opts NavigationServiceOptions) *NavigationService {
	if opts.Fetch == nil {
		panic("TreeFetcher is required")
	}
	cfg := opts.Config
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultMenuTreeTTL
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultNavRetention
	}
	if cfg.Retention < cfg.TTL {
		cfg.Retention = cfg.TTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultNavCapacity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := opts.Telemetry.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &NavigationService{
		fetch:   opts.Fetch,
		ttl:     cfg.TTL,
		ret:     cfg.Retention,
		now:     cfg.Now,
		cache:   newLRU[navEntry](cfg.Capacity, cfg.Now),
		logger:  logger.With("component", "navigation"),
		metrics: opts.Telemetry.Metrics,
	}
}

// Load returns the owner's tree, fetching when there is no fresh copy.
// With enabled false it only reports what is cached. It never returns an error;
// failures surface in NavView.Error alongside the last good tree.
func (s *NavigationService) Load(ctx context.Context, owner TreeOwner, enabled bool) NavView {
	key := owner.ID()
	ent, ok := s.cache.Get(key)
	if !enabled || (ok && s.isFresh(ent)) {
		return toView(ent)
	}

	v, _, _ := s.group.Do(key, func() (any, error) {
		// Another caller may have finished a fetch while we waited for the group.
		if cur, found := s.cache.Get(key); found && s.isFresh(cur) {
			return cur, nil
		}
		return s.fetchAndStore(context.WithoutCancel(ctx), key, owner), nil
	})
	return toView(v.(navEntry))
}

// Refresh marks the owner's tree stale so the next Load fetches again.
// The current tree stays visible until that fetch completes.
func (s *NavigationService) Refresh(key string) {
	if ent, ok := s.cache.Get(key); ok {
		ent.fresh = false
		s.cache.Set(key, ent, s.ret)
	}
}

// Forget drops the owner's tree, e.g. on logout.
func (s *NavigationService) Forget(key string) {
	s.cache.Delete(key)
}

// Stats exposes cache counters.
func (s *NavigationService) Stats() CacheStats { return s.cache.Stats() }

func (s *NavigationService) isFresh(e navEntry) bool {
	return e.fresh && !e.fetchedAt.IsZero() && s.now().Sub(e.fetchedAt) < s.ttl
}

func (s *NavigationService) fetchAndStore(ctx context.Context, key string, owner TreeOwner) navEntry {
	prev, _ := s.cache.Get(key)

	items, err := s.fetch(ctx, owner)
	if err == nil {
		err = menu.Validate(items)
	}
	s.metrics.ObserveNavFetch(err)

	if err != nil {
		s.logger.WarnContext(ctx, "menu tree fetch failed", "session", key, "error", err)
		prev.err = fetchErrorMessage(err)
		prev.fresh = false
		s.cache.Set(key, prev, s.ret)
		return prev
	}

	if items == nil {
		items = []menu.Node{}
	}
	ent := navEntry{items: items, fetchedAt: s.now(), fresh: true}
	s.cache.Set(key, ent, s.ret)
	return ent
}

func fetchErrorMessage(err error) string {
	if status := apiclient.StatusOf(err); status != 0 {
		return err.Error()
	}
	return fmt.Sprintf("Failed to load menu: %v", err)
}

func toView(e navEntry) NavView {
	v := NavView{Items: e.items, Error: e.err}
	if v.Items == nil {
		v.Items = []menu.Node{}
	}
	if !e.fetchedAt.IsZero() {
		at := e.fetchedAt
		v.FetchedAt = &at
	}
	return v
}
