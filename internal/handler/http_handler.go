package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/audit"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/reconciler"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/service"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/response"
)

const (
	msgQueryRequired = `Query parameter "q" is required`
	msgSearchFailed  = "Search failed"

	headerActorID = "X-User-ID"
)

// Reindexer runs one full reindex pass.
type Reindexer interface {
	RunOnce(ctx context.Context) (*reconciler.Report, error)
}

// Handler handles HTTP requests for the search service.
type Handler struct {
	searchService service.SearchService
	reindexer     Reindexer
}

// NewHandler creates a new HTTP handler. reindexer may be nil.
func NewHandler(searchService service.SearchService, reindexer Reindexer) *Handler {
	return &Handler{
		searchService: searchService,
		reindexer:     reindexer,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	api := r.Group("/api/v1")
	{
		api.GET("/search", h.Search)
		api.GET("/search/users", h.scoped(domain.CategoryUsers))
		api.GET("/search/groups", h.scoped(domain.CategoryGroups))
		api.GET("/search/events", h.scoped(domain.CategoryEvents))
		api.GET("/search/knowledge", h.scoped(domain.CategoryKnowledge))
		api.POST("/search/reindex", h.Reindex)
	}
}

// Search handles unified search; type selects the categories.
func (h *Handler) Search(c *gin.Context) {
	cat, err := domain.ParseCategory(c.Query("type"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.search(c, cat, true)
}

func (h *Handler) scoped(cat domain.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.search(c, cat, false)
	}
}

func (h *Handler) search(c *gin.Context, cat domain.Category, typeIsSelector bool) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	q, err := parseQuery(c, cat, typeIsSelector)
	if err != nil {
		l.Warn().Err(err).Msg("invalid search request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.searchService.Search(ctx, q)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			response.BadRequest(c, err.Error())
			return
		}
		l.Error().Err(err).
			Str(log.FieldQuery, q.Text).
			Str(log.FieldCategory, string(cat)).
			Msg("search failed")
		response.InternalError(c, msgSearchFailed, err)
		return
	}

	response.OK(c, render(cat, result))
}

// parseQuery reads q, paging, sort and the category filter params.
func parseQuery(c *gin.Context, cat domain.Category, typeIsSelector bool) (domain.SearchQuery, error) {
	q := domain.SearchQuery{
		Text:     strings.TrimSpace(c.Query("q")),
		Category: cat,
		Sort:     c.Query("sort"),
	}

	var err error
	if q.Page, err = intParam(c, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(c, "limit"); err != nil {
		return q, err
	}

	for _, each := range cat.Expand() {
		for _, field := range each.FilterFields() {
			if field == "type" && typeIsSelector {
				continue
			}
			v := strings.TrimSpace(c.Query(field))
			if v == "" {
				continue
			}
			if q.Filters == nil {
				q.Filters = make(map[domain.Category]map[string]string)
			}
			if q.Filters[each] == nil {
				q.Filters[each] = make(map[string]string)
			}
			q.Filters[each][field] = v
		}
	}

	if q.Text == "" && !q.HasFilters() {
		return q, errors.New(msgQueryRequired)
	}
	return q, nil
}

func intParam(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("Query parameter \"" + name + "\" must be an integer")
	}
	return v, nil
}

// render shapes a result as { <pluralKey>: [...], total }. Every
// requested category key is present.
func render(cat domain.Category, result *domain.SearchResult) gin.H {
	body := gin.H{"total": result.Total}
	for _, each := range cat.Expand() {
		entities := result.PerCategory[each]
		if entities == nil {
			entities = []domain.Entity{}
		}
		body[each.PluralKey()] = entities
	}
	return body
}

// Reindex runs the reconciler once and audit-logs the outcome.
func (h *Handler) Reindex(c *gin.Context) {
	ctx := c.Request.Context()
	actor := c.GetHeader(headerActorID)

	if h.reindexer == nil {
		audit.Log(ctx, audit.ActionReindex, actor, "rejected", "reindex not configured")
		response.ServiceUnavailable(c, "Reindex is not available")
		return
	}

	report, err := h.reindexer.RunOnce(ctx)
	switch {
	case errors.Is(err, reconciler.ErrBackendDown):
		audit.Log(ctx, audit.ActionReindex, actor, "rejected", "reindex rejected: backend not in use")
		response.ServiceUnavailable(c, "Search backend is unavailable")
		return
	case errors.Is(err, reconciler.ErrRunning):
		audit.Log(ctx, audit.ActionReindex, actor, "rejected", "reindex rejected: already running")
		response.Error(c, http.StatusConflict, "CONFLICT", "Reindex already running")
		return
	case err != nil:
		audit.Log(ctx, audit.ActionReindex, actor, "failed", "reindex failed")
		response.InternalError(c, "Reindex failed", err)
		return
	}

	audit.LogWithDetail(ctx, audit.ActionReindex, actor, "ok", report.Indexed, "reindex complete")
	response.OK(c, gin.H{
		"indexed":        report.Indexed,
		"failed_batches": report.FailedBatches,
		"duration_ms":    report.Duration.Milliseconds(),
	})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok"})
}

// Ready reports readiness: the primary store must answer. The mode is
// informational; fallback mode is still ready.
func (h *Handler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	mode := h.searchService.Mode()

	if err := h.searchService.Ping(ctx); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "mode": mode})
		return
	}
	response.OK(c, gin.H{"status": "ready", "mode": mode})
}
