package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/config"
)

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Cache.Driver = "redis"
	cfg.Redis.Address = mr.Addr()
	c, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &RedisSearchCache{}, c)
	c.Close()

	cfg.Cache.Driver = "memory"
	c, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemorySearchCache{}, c)

	cfg.Cache.Driver = "none"
	c, err = New(cfg)
	require.NoError(t, err)
	assert.Nil(t, c)

	cfg.Cache.Driver = "memcached"
	_, err = New(cfg)
	assert.Error(t, err)
}
