package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadCacheConfigDefaults(t *testing.T) {
	cfg := LoadCacheConfig()
	require.True(t, cfg.Enabled)
	require.Equal(t, 15*time.Second, cfg.TTL)
	require.Equal(t, "availability", cfg.Prefix)
	require.Equal(t, 1048576, cfg.MaxBodyBytes)
}

func TestLoadCacheConfigOverrides(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("CACHE_PREFIX", "avail-v2")

	cfg := LoadCacheConfig()
	require.False(t, cfg.Enabled)
	require.Equal(t, time.Minute, cfg.TTL)
	require.Equal(t, "avail-v2", cfg.Prefix)
}
