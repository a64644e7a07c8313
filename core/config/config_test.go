package config_test

import (
	"testing"

	"resource-manager/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Resolver.InstallRoot)
	assert.Equal(t, "cache", cfg.Resolver.CacheDir)
	assert.True(t, cfg.Resolver.EnablePrecache)
	assert.Equal(t, 5, cfg.Resolver.ModuleCacheSize)
	assert.Empty(t, cfg.Resolver.Archives)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("RESOLVER_INSTALL_ROOT", "/opt/game")
	t.Setenv("RESOLVER_ARCHIVES", "data/base.zip,data/xp1.zip")
	t.Setenv("RESOLVER_ENABLE_PRECACHE", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/opt/game", cfg.Resolver.InstallRoot)
	// Archive order is significant: base first, expansions after.
	assert.Equal(t, []string{"data/base.zip", "data/xp1.zip"}, cfg.Resolver.Archives)
	assert.False(t, cfg.Resolver.EnablePrecache)
	assert.Equal(t, "debug", cfg.Log.Level)
}
