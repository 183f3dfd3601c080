package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/backend"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/cache"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/fallback"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

// Config tunes the search service.
type Config struct {
	// CallTimeout bounds every backend, fallback and enrichment call.
	CallTimeout time.Duration
	// FanOutSize is the per-category page size of an all-categories query.
	FanOutSize int
	Defaults   domain.PageDefaults
	// DemoteOnFailure flips the process mode to fallback when a backend
	// call fails. Without it only the failing call falls back.
	DemoteOnFailure bool
	CachePrefix     string
	CacheTTL        time.Duration
}

func (c Config) withDefaults() Config {
	if c.FanOutSize < 1 {
		c.FanOutSize = 5
	}
	if c.Defaults.PageSize < 1 {
		c.Defaults.PageSize = 20
	}
	if c.Defaults.MaxPageSize < 1 {
		c.Defaults.MaxPageSize = 100
	}
	if c.Defaults.MaxWindow < 1 {
		c.Defaults.MaxWindow = 10000
	}
	if c.CachePrefix == "" {
		c.CachePrefix = "search"
	}
	return c
}

// Service routes each search to the backend or the fallback engine and
// merges the per-category results.
type Service struct {
	backend  backend.Backend
	fallback FallbackEngine
	repo     Enricher
	cache    cache.SearchCache
	mode     *ModeCell
	cfg      Config

	sf singleflight.Group
	wg sync.WaitGroup
}

// NewSearchService creates a new search service. backend and cache may be
// nil. The mode starts as whatever the cell holds; call Initialize to
// probe the backend.
func NewSearchService(b backend.Backend, fb FallbackEngine, repo Enricher, c cache.SearchCache, mode *ModeCell, cfg Config) *Service {
	if mode == nil {
		mode = NewModeCell(domain.ModeFallback)
	}
	return &Service{
		backend:  b,
		fallback: fb,
		repo:     repo,
		cache:    c,
		mode:     mode,
		cfg:      cfg.withDefaults(),
	}
}

// Initialize probes the backend and ensures its indexes. The service
// uses the backend only when it answers and every index is ready.
func (s *Service) Initialize(ctx context.Context) domain.Mode {
	l := log.Ctx(ctx)

	if s.backend == nil {
		s.mode.Store(domain.ModeFallback)
		l.Info().Str(log.FieldMode, string(domain.ModeFallback)).Msg("no search backend configured")
		return domain.ModeFallback
	}

	probeCtx, cancel := s.callCtx(ctx)
	available := s.backend.IsAvailable(probeCtx)
	cancel()

	mode := domain.ModeFallback
	if available && backend.AllReady(backend.EnsureAll(ctx, s.backend)) {
		mode = domain.ModeBackend
	}
	s.mode.Store(mode)

	l.Info().
		Str(log.FieldBackend, s.backend.Name()).
		Str(log.FieldMode, string(mode)).
		Msg("search service initialized")
	return mode
}

func (s *Service) Mode() domain.Mode {
	return s.mode.Load()
}

// Ping reports the health of the primary datastore.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.repo.Ping(ctx)
}

// Search runs q across its categories. Recoverable conditions never
// change the shape of the result; only a primary datastore failure is
// returned as an error.
func (s *Service) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	q = q.Normalize(s.cfg.Defaults)
	if q.Category != domain.CategoryAll && !q.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidQuery, q.Category)
	}

	p, err := s.planFor(q)
	if err != nil {
		return nil, err
	}

	if s.cache == nil {
		return s.execute(ctx, q, p)
	}

	l := log.Ctx(ctx)
	gens, err := s.cache.Generations(ctx, q.Category.Expand())
	if err != nil {
		l.Warn().Err(err).Msg("cache generations error")
		return s.execute(ctx, q, p)
	}
	key := cache.BuildKey(s.cfg.CachePrefix, q, gens)

	// followers share the leader's execution, so it must outlive the
	// leader's request
	shared := context.WithoutCancel(ctx)
	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		cached, err := s.cache.Get(shared, key)
		if err == nil {
			return cached.Result(), nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.Warn().Err(err).Msg("cache get error")
		}

		res, err := s.execute(shared, q, p)
		if err != nil {
			return nil, err
		}

		s.asyncCacheSet(key, cache.NewEntry(res))
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.SearchResult), nil
}

// plan is the resolved shape of one call.
type plan struct {
	// keys are the categories present in the result, cats the ones queried.
	keys   []domain.Category
	cats   []domain.Category
	page   int
	size   int
	offset int
}

func (s *Service) planFor(q domain.SearchQuery) (plan, error) {
	p := plan{
		keys: q.Category.Expand(),
		page: q.Page,
		size: q.PageSize,
	}
	p.cats = p.keys

	if q.Category == domain.CategoryAll {
		p.page, p.size = 1, s.cfg.FanOutSize
		// a filter-only query matches nothing in categories it does not filter
		if q.Text == "" && q.HasFilters() {
			p.cats = nil
			for _, cat := range p.keys {
				if len(q.FiltersFor(cat)) > 0 {
					p.cats = append(p.cats, cat)
				}
			}
		}
	}

	offset, err := domain.Offset(p.page, p.size, s.cfg.Defaults.MaxWindow)
	if err != nil {
		return plan{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	p.offset = offset
	return p, nil
}

// execute picks the route for one call. A backend failure anywhere in the
// fan-out sends the whole call to the fallback engine so one response
// never mixes sources.
func (s *Service) execute(ctx context.Context, q domain.SearchQuery, p plan) (*domain.SearchResult, error) {
	if s.backend != nil && s.mode.Load() == domain.ModeBackend {
		res, err := s.searchBackend(ctx, q, p)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, ErrUpstream) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		l := log.Ctx(ctx)
		// a rejected query says nothing about the engine's health
		if errors.Is(err, backend.ErrRejected) {
			l.Warn().Err(err).
				Str(log.FieldBackend, s.backend.Name()).
				Msg("backend rejected query, answering from fallback")
			return s.searchFallback(ctx, q, p)
		}

		l.Warn().Err(err).
			Str(log.FieldBackend, s.backend.Name()).
			Msg("backend search failed, answering from fallback")

		if s.cfg.DemoteOnFailure && s.mode.Swap(domain.ModeFallback) {
			l.Warn().Str(log.FieldMode, string(domain.ModeFallback)).Msg("search backend demoted")
		}
	}

	return s.searchFallback(ctx, q, p)
}

func (s *Service) searchBackend(ctx context.Context, q domain.SearchQuery, p plan) (*domain.SearchResult, error) {
	cats := p.cats
	pages := make([]*backend.HitPage, len(cats))

	g, gCtx := errgroup.WithContext(ctx)
	for i, cat := range cats {
		g.Go(func() error {
			callCtx, cancel := s.callCtx(gCtx)
			defer cancel()

			hp, err := s.backend.Query(callCtx, backend.BackendQuery{
				Category: cat,
				Text:     q.Text,
				Filters:  q.FiltersFor(cat),
				Offset:   p.offset,
				Limit:    p.size,
				Sort:     q.Sort,
			})
			if err != nil {
				return fmt.Errorf("backend %s: %w", cat, err)
			}
			pages[i] = hp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entities := make([][]domain.Entity, len(cats))
	g, gCtx = errgroup.WithContext(ctx)
	for i, cat := range cats {
		g.Go(func() error {
			out, err := s.enrich(gCtx, cat, pages[i].Hits)
			if err != nil {
				return fmt.Errorf("%w: enrich %s: %w", ErrUpstream, cat, err)
			}
			entities[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := newResult(domain.ModeBackend, p.keys)
	for i, cat := range cats {
		res.PerCategory[cat] = entities[i]
		res.Total += pages[i].Total
	}
	return res, nil
}

// enrich loads the hits' entities and returns them in hit order. Hits
// with no live entity are stale index entries and are dropped.
func (s *Service) enrich(ctx context.Context, cat domain.Category, hits []backend.Hit) ([]domain.Entity, error) {
	out := make([]domain.Entity, 0, len(hits))
	if len(hits) == 0 {
		return out, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}

	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	found, err := s.repo.FindManyByIDs(callCtx, cat, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Entity, len(found))
	for _, e := range found {
		byID[e.EntityID()] = e
	}
	for _, h := range hits {
		if e, ok := byID[h.ID]; ok {
			out = append(out, e)
		}
	}

	if stale := len(hits) - len(out); stale > 0 {
		l := log.Ctx(ctx)
		l.Debug().Str(log.FieldCategory, string(cat)).Int("stale", stale).Msg("dropped stale index hits")
	}
	return out, nil
}

func (s *Service) searchFallback(ctx context.Context, q domain.SearchQuery, p plan) (*domain.SearchResult, error) {
	cats := p.cats
	pages := make([]*fallback.Page, len(cats))

	g, gCtx := errgroup.WithContext(ctx)
	for i, cat := range cats {
		g.Go(func() error {
			callCtx, cancel := s.callCtx(gCtx)
			defer cancel()

			fp, err := s.fallback.Query(callCtx, fallback.Query{
				Category: cat,
				Text:     q.Text,
				Filters:  q.FiltersFor(cat),
				Page:     p.page,
				PageSize: p.size,
				Sort:     q.Sort,
			})
			if err != nil {
				return fmt.Errorf("%w: fallback %s: %w", ErrUpstream, cat, err)
			}
			pages[i] = fp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := newResult(domain.ModeFallback, p.keys)
	for i, cat := range cats {
		entities := pages[i].Entities
		if entities == nil {
			entities = []domain.Entity{}
		}
		res.PerCategory[cat] = entities
		res.Total += pages[i].Total
	}
	return res, nil
}

func newResult(mode domain.Mode, keys []domain.Category) *domain.SearchResult {
	res := &domain.SearchResult{
		PerCategory: make(map[domain.Category][]domain.Entity, len(keys)),
		Mode:        mode,
	}
	for _, cat := range keys {
		res.PerCategory[cat] = []domain.Entity{}
	}
	return res
}

func (s *Service) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

func (s *Service) asyncCacheSet(key string, entry *cache.Entry) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.cache.Set(ctx, key, entry, s.cfg.CacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Str("key", key).Msg("cache set error")
		}
	}()
}

// Close waits for pending cache writes.
func (s *Service) Close() {
	s.wg.Wait()
}
