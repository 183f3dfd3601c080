package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/config"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/pubsub"
)

func newBroadcastPeer(t *testing.T, addr string) (*BroadcastCache, *MemorySearchCache) {
	t.Helper()
	inner, err := NewMemorySearchCache(16)
	require.NoError(t, err)
	bus, err := pubsub.NewRedisPubSub(pubsub.RedisConfig{Address: addr})
	require.NoError(t, err)
	bc, err := NewBroadcastCache(inner, bus, "search:invalidate")
	require.NoError(t, err)
	return bc, inner
}

func gen(t *testing.T, c SearchCache, cat domain.Category) int64 {
	t.Helper()
	gens, err := c.Generations(context.Background(), []domain.Category{cat})
	require.NoError(t, err)
	return gens[cat]
}

func TestBroadcastCache_PropagatesBumps(t *testing.T) {
	mr := miniredis.RunT(t)
	a, _ := newBroadcastPeer(t, mr.Addr())
	defer a.Close()
	b, bInner := newBroadcastPeer(t, mr.Addr())
	defer b.Close()

	require.NoError(t, a.Bump(context.Background(), domain.CategoryGroups))
	assert.Equal(t, int64(1), gen(t, a, domain.CategoryGroups))

	require.Eventually(t, func() bool {
		return gen(t, bInner, domain.CategoryGroups) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A peer never re-applies its own bump.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), gen(t, a, domain.CategoryGroups))
	assert.Zero(t, gen(t, b, domain.CategoryUsers))
}

func TestBroadcastCache_DelegatesEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	a, _ := newBroadcastPeer(t, mr.Addr())
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "k", NewEntry(sampleResult()), time.Minute))
	got, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Total)
}

func TestBroadcastCache_CloseStopsListener(t *testing.T) {
	mr := miniredis.RunT(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	a, _ := newBroadcastPeer(t, mr.Addr())
	require.NoError(t, a.Close())
}

func TestNew_BroadcastMemory(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Cache.Driver = "memory"
	cfg.Cache.Broadcast = true
	cfg.Cache.Channel = "search:invalidate"
	cfg.Redis.Address = mr.Addr()

	c, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &BroadcastCache{}, c)
	require.NoError(t, c.Close())
}
