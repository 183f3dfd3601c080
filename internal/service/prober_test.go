package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/backend"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

func newProbeTarget(t *testing.T) *scriptedBackend {
	t.Helper()
	index := backend.NewBleve("", "campus")
	t.Cleanup(func() { index.Close() })
	return &scriptedBackend{Backend: index}
}

func TestProber_DemotesOnFirstFailure(t *testing.T) {
	b := newProbeTarget(t)
	mode := NewModeCell(domain.ModeBackend)
	p := NewProber(b, mode, time.Second, 3, time.Second)

	assert.Equal(t, domain.ModeBackend, p.Probe(context.Background()))

	b.down.Store(true)
	assert.Equal(t, domain.ModeFallback, p.Probe(context.Background()))
	assert.Equal(t, domain.ModeFallback, mode.Load())
}

func TestProber_PromotesAfterConsecutiveSuccesses(t *testing.T) {
	b := newProbeTarget(t)
	mode := NewModeCell(domain.ModeFallback)
	p := NewProber(b, mode, time.Second, 3, time.Second)
	ctx := context.Background()

	assert.Equal(t, domain.ModeFallback, p.Probe(ctx))
	assert.Equal(t, domain.ModeFallback, p.Probe(ctx))

	// A failure resets the streak.
	b.down.Store(true)
	assert.Equal(t, domain.ModeFallback, p.Probe(ctx))
	b.down.Store(false)

	assert.Equal(t, domain.ModeFallback, p.Probe(ctx))
	assert.Equal(t, domain.ModeFallback, p.Probe(ctx))
	assert.Equal(t, domain.ModeBackend, p.Probe(ctx))
	assert.Equal(t, domain.ModeBackend, mode.Load())

	// Promotion ensured the indexes.
	_, err := b.Query(ctx, backend.BackendQuery{Category: domain.CategoryEvents, Limit: 1})
	assert.NoError(t, err)
}

func TestProber_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	index := backend.NewBleve("", "campus")
	defer index.Close()
	b := &scriptedBackend{Backend: index}
	mode := NewModeCell(domain.ModeFallback)
	p := NewProber(b, mode, 10*time.Millisecond, 1, time.Second)

	p.Start(context.Background())
	require.Eventually(t, func() bool {
		return mode.Load() == domain.ModeBackend
	}, 2*time.Second, 10*time.Millisecond)

	p.Stop()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("prober did not stop")
	}
}

func TestProber_DisabledWithoutInterval(t *testing.T) {
	p := NewProber(newProbeTarget(t), NewModeCell(domain.ModeFallback), 0, 3, time.Second)
	p.Start(context.Background())

	select {
	case <-p.Done():
	default:
		t.Fatal("disabled prober should be done immediately")
	}
}

func TestProber_OnPromoteRunsOncePerRecovery(t *testing.T) {
	b := newProbeTarget(t)
	mode := NewModeCell(domain.ModeFallback)
	p := NewProber(b, mode, time.Second, 1, time.Second)
	ctx := context.Background()

	promotions := 0
	p.OnPromote(func(ctx context.Context) { promotions++ })

	assert.Equal(t, domain.ModeBackend, p.Probe(ctx))
	assert.Equal(t, domain.ModeBackend, p.Probe(ctx))
	assert.Equal(t, 1, promotions)

	b.down.Store(true)
	assert.Equal(t, domain.ModeFallback, p.Probe(ctx))
	b.down.Store(false)
	assert.Equal(t, domain.ModeBackend, p.Probe(ctx))
	assert.Equal(t, 2, promotions)
}
