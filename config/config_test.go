package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DISCORD_BOT_TOKEN", "token")
		t.Setenv("DISCORD_CLIENT_ID", "123")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "token", cfg.DiscordToken)
		assert.True(t, cfg.CanSyncCommands())
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 300*time.Second, cfg.AutoLeave())
		assert.Equal(t, 10*time.Minute, cfg.SearchCacheTTL)
		assert.Equal(t, "yt-dlp", cfg.YTDLPBinary)
		assert.False(t, cfg.IsProduction())
		assert.False(t, cfg.GetRedisConfig().Enabled)
		assert.False(t, cfg.GetDBConfig().Enabled)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Setenv("DISCORD_BOT_TOKEN", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DISCORD_BOT_TOKEN")
	})

	t.Run("production and silent", func(t *testing.T) {
		t.Setenv("DISCORD_BOT_TOKEN", "token")
		t.Setenv("NODE_ENV", "production")
		t.Setenv("SILENT", "true")
		t.Setenv("REDIS_HOST", "localhost")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
		assert.True(t, cfg.Silent)
		assert.True(t, cfg.GetRedisConfig().Enabled)
		assert.Equal(t, 6379, cfg.GetRedisConfig().Port)
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{DiscordToken: "t", LogLevel: "info", SearchCacheSize: 1}
	}

	tests := map[string]struct {
		mutate  func(*Config)
		wantErr string
	}{
		"valid":            {mutate: func(*Config) {}},
		"verbose level":    {mutate: func(c *Config) { c.LogLevel = "verbose" }},
		"silly level":      {mutate: func(c *Config) { c.LogLevel = "SILLY" }},
		"bad log level":    {mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "LOG_LEVEL"},
		"negative leave":   {mutate: func(c *Config) { c.AutoLeaveTimeout = -1 }, wantErr: "AUTO_LEAVE_TIMEOUT"},
		"empty cache size": {mutate: func(c *Config) { c.SearchCacheSize = 0 }, wantErr: "SEARCH_CACHE_SIZE"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRegister(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("CLIENT_ID", "1")
	t.Setenv("GUILD_ID", "")

	_, err := LoadRegister()
	require.Error(t, err)

	t.Setenv("GUILD_ID", "2")
	cfg, err := LoadRegister()
	require.NoError(t, err)
	assert.Equal(t, "2", cfg.GuildID)
}
