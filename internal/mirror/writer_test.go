package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/backend"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

type failingBackend struct {
	backend.Backend
	err error
}

func (f *failingBackend) Name() string { return "failing" }

func (f *failingBackend) Upsert(ctx context.Context, doc domain.IndexDocument) error { return f.err }

func (f *failingBackend) UpsertMany(ctx context.Context, docs []domain.IndexDocument) error {
	return f.err
}

func (f *failingBackend) Remove(ctx context.Context, cat domain.Category, id string) error {
	return f.err
}

// ctxRecorder captures the context each write ran under.
type ctxRecorder struct {
	backend.Backend
	seen context.Context
}

func (r *ctxRecorder) Name() string { return "recorder" }

func (r *ctxRecorder) Upsert(ctx context.Context, doc domain.IndexDocument) error {
	r.seen = ctx
	return ctx.Err()
}

type countingInvalidator struct {
	mu     sync.Mutex
	bumps  map[domain.Category]int
	failed bool
}

func (c *countingInvalidator) Bump(ctx context.Context, cat domain.Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bumps == nil {
		c.bumps = make(map[domain.Category]int)
	}
	c.bumps[cat]++
	if c.failed {
		return errors.New("redis down")
	}
	return nil
}

func newBleve(t *testing.T) *backend.Bleve {
	t.Helper()
	b := backend.NewBleve("", "campus")
	t.Cleanup(func() { b.Close() })
	require.True(t, backend.AllReady(backend.EnsureAll(context.Background(), b)))
	return b
}

func count(t *testing.T, b backend.Backend, cat domain.Category, text string) int {
	t.Helper()
	page, err := b.Query(context.Background(), backend.BackendQuery{Category: cat, Text: text, Limit: 10})
	require.NoError(t, err)
	return page.Total
}

func TestWriterCreateUpdateDelete(t *testing.T) {
	b := newBleve(t)
	inv := &countingInvalidator{}
	w := NewWriter(b, inv, time.Second)
	ctx := context.Background()

	group := &domain.Group{ID: "g1", Title: "Robotics Club"}
	assert.Equal(t, Applied, w.OnCreate(ctx, group))
	assert.Equal(t, 1, count(t, b, domain.CategoryGroups, "robotics"))

	group.Title = "Drone Club"
	assert.Equal(t, Applied, w.OnUpdate(ctx, group))
	assert.Equal(t, 0, count(t, b, domain.CategoryGroups, "robotics"))
	assert.Equal(t, 1, count(t, b, domain.CategoryGroups, "drone"))

	assert.Equal(t, Applied, w.OnDelete(ctx, domain.CategoryGroups, "g1"))
	assert.Equal(t, Applied, w.OnDelete(ctx, domain.CategoryGroups, "g1"))
	assert.Equal(t, 0, count(t, b, domain.CategoryGroups, ""))

	assert.Equal(t, 4, inv.bumps[domain.CategoryGroups])
}

func TestWriterSwallowsBackendFailure(t *testing.T) {
	inv := &countingInvalidator{}
	w := NewWriter(&failingBackend{err: errors.New("connection refused")}, inv, time.Second)
	ctx := context.Background()

	assert.Equal(t, Failed, w.OnCreate(ctx, &domain.Event{ID: "e1"}))
	assert.Equal(t, Failed, w.OnDelete(ctx, domain.CategoryEvents, "e1"))
	assert.Equal(t, Failed, w.Reindex(ctx, []domain.Entity{&domain.Event{ID: "e1"}}))
	assert.Equal(t, 3, inv.bumps[domain.CategoryEvents])
}

func TestWriterWithoutBackend(t *testing.T) {
	inv := &countingInvalidator{}
	w := NewWriter(nil, inv, time.Second)
	ctx := context.Background()

	assert.Equal(t, Skipped, w.OnCreate(ctx, &domain.UserProfile{ID: "u1"}))
	assert.Equal(t, Skipped, w.OnDelete(ctx, domain.CategoryUsers, "u1"))
	assert.Equal(t, 2, inv.bumps[domain.CategoryUsers])
}

func TestWriterIgnoresCallerCancellation(t *testing.T) {
	rec := &ctxRecorder{}
	w := NewWriter(rec, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, Applied, w.OnCreate(ctx, &domain.Group{ID: "g1"}))
	_, hasDeadline := rec.seen.Deadline()
	assert.True(t, hasDeadline)
}

func TestWriterInvalidationFailureDoesNotChangeOutcome(t *testing.T) {
	w := NewWriter(newBleve(t), &countingInvalidator{failed: true}, time.Second)
	assert.Equal(t, Applied, w.OnCreate(context.Background(), &domain.Group{ID: "g1", Title: "Chess"}))
}

func TestWriterReindex(t *testing.T) {
	b := newBleve(t)
	inv := &countingInvalidator{}
	w := NewWriter(b, inv, time.Second)

	outcome := w.Reindex(context.Background(), []domain.Entity{
		&domain.UserProfile{ID: "u1", Name: "Alice Robotics"},
		&domain.Group{ID: "g1", Title: "Robotics Club"},
	})
	assert.Equal(t, Applied, outcome)
	assert.Equal(t, 1, count(t, b, domain.CategoryUsers, "robotics"))
	assert.Equal(t, 1, count(t, b, domain.CategoryGroups, "robotics"))
	assert.Equal(t, 1, inv.bumps[domain.CategoryUsers])
	assert.Equal(t, 1, inv.bumps[domain.CategoryGroups])

	assert.Equal(t, Applied, w.Reindex(context.Background(), nil))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "failed", Failed.String())
}
