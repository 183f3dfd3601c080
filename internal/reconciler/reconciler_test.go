package reconciler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/backend"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/config"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/mirror"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/repository"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/repository/repotest"
)

type fixedMode domain.Mode

func (m fixedMode) Mode() domain.Mode { return domain.Mode(m) }

func setup(t *testing.T) (*repository.GormEntityRepository, *backend.Bleve) {
	t.Helper()

	db := repotest.Open(t)
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		repotest.Seed(t, db, &domain.Group{ID: fmt.Sprintf("g%d", i), Title: "Reading Circle", CreatedAt: epoch})
	}
	repotest.Seed(t, db,
		&domain.UserProfile{ID: "u1", Name: "Reader One", CreatedAt: epoch},
		&domain.UserProfile{ID: "u2", Name: "Reader Two", CreatedAt: epoch},
	)
	repotest.SoftDelete(t, db, domain.CategoryUsers, "u2")

	index := backend.NewBleve("", "campus")
	require.True(t, backend.AllReady(backend.EnsureAll(context.Background(), index)))
	return repository.NewGormEntityRepository(db), index
}

func TestRunOnce(t *testing.T) {
	repo, index := setup(t)
	defer index.Close()

	r := New(repo, mirror.NewWriter(index, nil, time.Second), fixedMode(domain.ModeBackend),
		config.ReconcilerConfig{BatchSize: 2})

	report, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Indexed[domain.CategoryGroups])
	assert.Equal(t, 1, report.Indexed[domain.CategoryUsers])
	assert.Zero(t, report.FailedBatches)

	page, err := index.Query(context.Background(), backend.BackendQuery{Category: domain.CategoryGroups, Text: "reading", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)

	page, err = index.Query(context.Background(), backend.BackendQuery{Category: domain.CategoryUsers, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestRunOnce_SkipsInFallbackMode(t *testing.T) {
	repo, index := setup(t)
	defer index.Close()

	r := New(repo, mirror.NewWriter(index, nil, time.Second), fixedMode(domain.ModeFallback), config.ReconcilerConfig{})
	_, err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrBackendDown)
}

func TestRunOnce_CountsFailedBatches(t *testing.T) {
	repo, index := setup(t)
	require.NoError(t, index.Close())

	r := New(repo, mirror.NewWriter(index, nil, time.Second), nil, config.ReconcilerConfig{BatchSize: 10})
	report, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.FailedBatches)
	assert.Empty(t, report.Indexed)
}

func TestStartStop(t *testing.T) {
	repo, index := setup(t)
	defer index.Close()
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := New(repo, mirror.NewWriter(index, nil, time.Second), fixedMode(domain.ModeBackend),
		config.ReconcilerConfig{Interval: 10 * time.Millisecond})
	r.Start(context.Background())

	require.Eventually(t, func() bool {
		page, err := index.Query(context.Background(), backend.BackendQuery{Category: domain.CategoryGroups, Limit: 1})
		return err == nil && page.Total == 5
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestStart_Disabled(t *testing.T) {
	r := New(nil, nil, nil, config.ReconcilerConfig{})
	r.Start(context.Background())

	select {
	case <-r.Done():
	default:
		t.Fatal("disabled reconciler should be done immediately")
	}
}
