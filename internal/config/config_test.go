package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 9, cfg.News.ArticleCount)
	require.Equal(t, 5, cfg.News.MaxDailyFetches)
	require.Equal(t, 24*time.Hour, cfg.News.SnapshotTTL)
	require.Equal(t, 60*time.Second, cfg.News.LockTTL)
	require.Equal(t, 2*time.Second, cfg.News.LockWait)
	require.Equal(t, "en", cfg.News.Language)
	require.Equal(t, 50, cfg.News.MaxResults)
	require.Equal(t, 15, cfg.Classifier.MaxUncached)
	require.Equal(t, 10*time.Second, cfg.Classifier.Timeout)
	require.Equal(t, 5, cfg.Classifier.BatchSize)
	require.Equal(t, 8, cfg.Classifier.MinScore)
	require.Equal(t, 20, cfg.Classifier.BackfillCap)
	require.Equal(t, "fail_open", cfg.Cache.LockPolicy)
	require.Equal(t, "none", cfg.Archive.Backend)
	require.Equal(t, "news.refreshed", cfg.PubSub.EventName)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout: 5s
logging:
  development: true
news:
  query: coral
  max_daily_fetches: 3
  lock_wait: 500ms
classifier:
  model: gemini-test
  batch_interval: 250ms
archive:
  backend: local
  base_dir: /tmp/ocean-archive
pubsub:
  backend: memory
db:
  dsn: postgres://localhost/news
  auto_migrate: true
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	require.True(t, cfg.Logging.Development)
	require.Equal(t, "coral", cfg.News.Query)
	require.Equal(t, 3, cfg.News.MaxDailyFetches)
	require.Equal(t, 500*time.Millisecond, cfg.News.LockWait)
	require.Equal(t, "gemini-test", cfg.Classifier.Model)
	require.Equal(t, 250*time.Millisecond, cfg.Classifier.BatchInterval)
	require.Equal(t, "/tmp/ocean-archive", cfg.Archive.BaseDir)
	require.Equal(t, "memory", cfg.PubSub.Backend)
	require.True(t, cfg.DB.AutoMigrate)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadEnvAliases(t *testing.T) {
	t.Setenv("GNEWS_API_KEY", "gnews-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("REDIS_URL", "rediss://cache.example.com:6379")
	t.Setenv("REDIS_TOKEN", "cache-token")
	t.Setenv("PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "gnews-key", cfg.News.APIKey)
	require.Equal(t, "gemini-key", cfg.Classifier.APIKey)
	require.Equal(t, "rediss://cache.example.com:6379", cfg.Cache.URL)
	require.Equal(t, "cache-token", cfg.Cache.Token)
	require.Equal(t, 7070, cfg.Server.Port)
	require.True(t, cfg.NewsEnabled())
	require.True(t, cfg.ClassifierEnabled())
}

func TestPrefixedEnvWinsOverAlias(t *testing.T) {
	t.Setenv("NEWS_NEWS_API_KEY", "prefixed")
	t.Setenv("GNEWS_API_KEY", "alias")
	t.Setenv("NEWS_NEWS_MAX_DAILY_FETCHES", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prefixed", cfg.News.APIKey)
	require.Equal(t, 2, cfg.News.MaxDailyFetches)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "article count", mutate: func(c *Config) { c.News.ArticleCount = 0 }},
		{name: "max fetches", mutate: func(c *Config) { c.News.MaxDailyFetches = 0 }},
		{name: "lock ttl", mutate: func(c *Config) { c.News.LockTTL = 0 }},
		{name: "min score", mutate: func(c *Config) { c.Classifier.MinScore = 11 }},
		{name: "lock policy", mutate: func(c *Config) { c.Cache.LockPolicy = "maybe" }},
		{name: "local archive without dir", mutate: func(c *Config) { c.Archive.Backend = "local" }},
		{name: "gcs archive without bucket", mutate: func(c *Config) { c.Archive.Backend = "gcs" }},
		{name: "unknown archive", mutate: func(c *Config) { c.Archive.Backend = "s3" }},
		{name: "pubsub without topic", mutate: func(c *Config) { c.PubSub.Backend = "pubsub"; c.PubSub.ProjectID = "p" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
