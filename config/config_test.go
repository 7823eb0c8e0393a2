package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"SERVER_ADDR", "LOG_LEVEL", "CRON_SECRET", "LLM_PROVIDER", "LLM_MODEL", "OPENAI_API_KEY",
	"OPENAI_BASE_URL", "X_PROVIDER", "X_ACCESS_TOKEN", "X_API_BASE_URL", "X_MAX_POSTS_PER_HOUR",
	"STATUS_BACKEND", "STATUS_PATH", "REDIS_URL", "AGENT_SCHEDULE", "AGENT_TOPICS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, ProviderX, cfg.Twitter.Provider)
	assert.Equal(t, BackendMemory, cfg.Status.Backend)
	assert.Equal(t, 60*time.Second, cfg.Agent.GenerateTimeout())
	assert.Equal(t, 30*time.Second, cfg.Agent.PublishTimeout())
	assert.Equal(t, 30*time.Second, cfg.Twitter.Timeout())
	assert.Empty(t, cfg.Twitter.AccessToken, "missing credentials must not fail loading")
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{
		"server_addr": ":9000",
		"llm": {"provider": "deepseek", "model": "deepseek-chat", "base_url": "https://api.deepseek.com"},
		"twitter": {"access_token": "file-token", "max_posts_per_hour": 4},
		"status": {"backend": "bolt"},
		"agent": {"schedule": "@every 6h", "topics": ["go", "rust"]}
	}`)
	t.Setenv("X_ACCESS_TOKEN", "env-token")
	t.Setenv("AGENT_TOPICS", "ai, startups ,")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ServerAddr)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, "env-token", cfg.Twitter.AccessToken)
	assert.Equal(t, 4, cfg.Twitter.MaxPostsPerHour)
	assert.Equal(t, "data/status.bolt", cfg.Status.Path)
	assert.Equal(t, "@every 6h", cfg.Agent.Schedule)
	assert.Equal(t, []string{"ai", "startups"}, cfg.Agent.Topics)
}

func TestLoadConfigRejectsUnknownEnums(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(writeConfig(t, `{"twitter": {"provider": "mastodon"}}`))
	assert.ErrorContains(t, err, "twitter provider mastodon not supported")

	_, err = LoadConfig(writeConfig(t, `{"status": {"backend": "s3"}}`))
	assert.ErrorContains(t, err, "status backend s3 not supported")

	_, err = LoadConfig(writeConfig(t, `{"status": {"backend": "redis"}}`))
	assert.ErrorContains(t, err, "requires status.redis_url")
}

func TestLoadConfigMalformedJSON(t *testing.T) {
	clearEnv(t)
	_, err := LoadConfig(writeConfig(t, `{"server_addr": `))
	assert.Error(t, err)
}
