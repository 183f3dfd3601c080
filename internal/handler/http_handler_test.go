package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/backend"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/fallback"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/mirror"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/reconciler"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/repository"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/repository/repotest"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSearch struct {
	last    domain.SearchQuery
	calls   int
	result  *domain.SearchResult
	err     error
	pingErr error
	mode    domain.Mode
}

func (f *fakeSearch) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	f.calls++
	f.last = q
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.SearchResult{PerCategory: map[domain.Category][]domain.Entity{}}, nil
}

func (f *fakeSearch) Mode() domain.Mode { return f.mode }

func (f *fakeSearch) Ping(ctx context.Context) error { return f.pingErr }

type fakeReindexer struct {
	report *reconciler.Report
	err    error
}

func (f *fakeReindexer) RunOnce(ctx context.Context) (*reconciler.Report, error) {
	return f.report, f.err
}

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	r := gin.New()
	h.RegisterRoutes(r)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSearch_RequiresQuery(t *testing.T) {
	fs := &fakeSearch{}
	w := serve(NewHandler(fs, nil), http.MethodGet, "/api/v1/search")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "BAD_REQUEST", body["code"])
	assert.Equal(t, `Query parameter "q" is required`, body["error"])
	assert.Zero(t, fs.calls)
}

func TestSearch_BlankQueryRejected(t *testing.T) {
	fs := &fakeSearch{}
	w := serve(NewHandler(fs, nil), http.MethodGet, "/api/v1/search/users?q=%20%20")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, fs.calls)
}

func TestSearch_FilterWithoutQuery(t *testing.T) {
	fs := &fakeSearch{}
	w := serve(NewHandler(fs, nil), http.MethodGet, "/api/v1/search/users?role=faculty")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.CategoryUsers, fs.last.Category)
	assert.Equal(t, map[domain.Category]map[string]string{
		domain.CategoryUsers: {"role": "faculty"},
	}, fs.last.Filters)
}

func TestSearch_UndeclaredFilterDoesNotCountAsFilter(t *testing.T) {
	fs := &fakeSearch{}
	w := serve(NewHandler(fs, nil), http.MethodGet, "/api/v1/search/users?privacy=public")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch_ParsesParams(t *testing.T) {
	fs := &fakeSearch{}
	w := serve(NewHandler(fs, nil), http.MethodGet,
		"/api/v1/search?q=robotics&type=groups&page=2&limit=7&privacy=public&type_filter=x&sort=created_at")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "robotics", fs.last.Text)
	assert.Equal(t, domain.CategoryGroups, fs.last.Category)
	assert.Equal(t, 2, fs.last.Page)
	assert.Equal(t, 7, fs.last.PageSize)
	assert.Equal(t, "created_at", fs.last.Sort)
	assert.Equal(t, map[domain.Category]map[string]string{
		domain.CategoryGroups: {"privacy": "public"},
	}, fs.last.Filters)
}

func TestSearchGroups_TypeIsFilter(t *testing.T) {
	fs := &fakeSearch{}
	w := serve(NewHandler(fs, nil), http.MethodGet, "/api/v1/search/groups?type=club")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.CategoryGroups, fs.last.Category)
	assert.Equal(t, "club", fs.last.Filters[domain.CategoryGroups]["type"])
}

func TestSearch_CategoryFilterAppliesToEventsAndPosts(t *testing.T) {
	fs := &fakeSearch{}
	w := serve(NewHandler(fs, nil), http.MethodGet, "/api/v1/search?category=career")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.CategoryAll, fs.last.Category)
	assert.Equal(t, "career", fs.last.Filters[domain.CategoryEvents]["category"])
	assert.Equal(t, "career", fs.last.Filters[domain.CategoryKnowledge]["category"])
	assert.NotContains(t, fs.last.Filters, domain.CategoryUsers)
}

func TestSearch_BadParams(t *testing.T) {
	for _, target := range []string{
		"/api/v1/search?q=x&page=abc",
		"/api/v1/search?q=x&limit=1.5",
		"/api/v1/search?q=x&type=rooms",
	} {
		t.Run(target, func(t *testing.T) {
			fs := &fakeSearch{}
			w := serve(NewHandler(fs, nil), http.MethodGet, target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, fs.calls)
		})
	}
}

func TestSearch_ResponseShape(t *testing.T) {
	fs := &fakeSearch{result: &domain.SearchResult{
		PerCategory: map[domain.Category][]domain.Entity{
			domain.CategoryUsers: {&domain.UserProfile{ID: "u1", Name: "Alice"}},
		},
		Total: 1,
	}}
	w := serve(NewHandler(fs, nil), http.MethodGet, "/api/v1/search?q=alice")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	for _, key := range []string{"users", "groups", "events", "posts"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, []any{}, body["posts"])
	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].(map[string]any)["name"])
	assert.NotContains(t, body, "mode")
}

func TestSearchKnowledge_UsesPostsKey(t *testing.T) {
	fs := &fakeSearch{}
	w := serve(NewHandler(fs, nil), http.MethodGet, "/api/v1/search/knowledge?q=interview")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, map[string]any{"posts": []any{}, "total": float64(0)}, body)
}

func TestSearch_UpstreamFailure(t *testing.T) {
	fs := &fakeSearch{err: errors.Join(service.ErrUpstream, errors.New("connection refused"))}
	w := serve(NewHandler(fs, nil), http.MethodGet, "/api/v1/search?q=x")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Equal(t, "Search failed", body["error"])
	assert.Contains(t, body["message"], "connection refused")
}

func TestReindex(t *testing.T) {
	tests := []struct {
		name   string
		ri     Reindexer
		status int
	}{
		{"not configured", nil, http.StatusServiceUnavailable},
		{"backend down", &fakeReindexer{err: reconciler.ErrBackendDown}, http.StatusServiceUnavailable},
		{"running", &fakeReindexer{err: reconciler.ErrRunning}, http.StatusConflict},
		{"failed", &fakeReindexer{err: context.Canceled}, http.StatusInternalServerError},
		{"ok", &fakeReindexer{report: &reconciler.Report{
			Indexed: map[domain.Category]int{domain.CategoryUsers: 3},
		}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(NewHandler(&fakeSearch{}, tt.ri), http.MethodPost, "/api/v1/search/reindex")
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHealthAndReady(t *testing.T) {
	fs := &fakeSearch{mode: domain.ModeFallback}
	h := NewHandler(fs, nil)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/health").Code)

	w := serve(h, http.MethodGet, "/ready")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fallback", decode(t, w)["mode"])

	fs.pingErr = errors.New("db down")
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, http.MethodGet, "/ready").Code)
}

func TestSearch_EndToEndFallback(t *testing.T) {
	db := repotest.Open(t)
	repotest.Seed(t, db,
		&domain.UserProfile{ID: "u1", Name: "Alice Robotics", Role: "student", CreatedAt: time.Now()},
		&domain.Group{ID: "g1", Title: "Robotics Club", Type: "club", CreatedAt: time.Now()},
	)
	repo := repository.NewGormEntityRepository(db)
	svc := service.NewSearchService(nil, fallback.NewEngine(repo), repo, nil,
		service.NewModeCell(domain.ModeFallback), service.Config{})

	w := serve(NewHandler(svc, nil), http.MethodGet, "/api/v1/search?q=robotics")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["users"], 1)
	assert.Len(t, body["groups"], 1)
	assert.Equal(t, []any{}, body["events"])
}

func TestSearch_PageBeyondWindow(t *testing.T) {
	db := repotest.Open(t)
	alice := &domain.UserProfile{ID: "u1", Name: "Alice Robotics", CreatedAt: time.Now()}
	repotest.Seed(t, db, alice)
	repo := repository.NewGormEntityRepository(db)

	index := backend.NewBleve("", "campus")
	t.Cleanup(func() { index.Close() })
	require.True(t, backend.AllReady(backend.EnsureAll(context.Background(), index)))
	require.Equal(t, mirror.Applied, mirror.NewWriter(index, nil, time.Second).OnCreate(context.Background(), alice))

	for _, mode := range []domain.Mode{domain.ModeBackend, domain.ModeFallback} {
		t.Run(string(mode), func(t *testing.T) {
			svc := service.NewSearchService(index, fallback.NewEngine(repo), repo, nil,
				service.NewModeCell(mode), service.Config{DemoteOnFailure: true})
			h := NewHandler(svc, nil)

			for _, target := range []string{
				"/api/v1/search/users?q=robotics&page=922337203685477580",
				"/api/v1/search/users?q=robotics&page=101&limit=100",
				"/api/v1/search/users?q=robotics&page=99999999999999999999",
			} {
				w := serve(h, http.MethodGet, target)
				assert.Equal(t, http.StatusBadRequest, w.Code, target)
			}

			// all-categories queries always read the first page
			w := serve(h, http.MethodGet, "/api/v1/search?q=robotics&page=922337203685477580")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Len(t, decode(t, w)["users"], 1)

			w = serve(h, http.MethodGet, "/api/v1/search/users?q=robotics&page=100&limit=100")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, mode, svc.Mode())
		})
	}
}
