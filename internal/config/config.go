// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	News       NewsConfig       `mapstructure:"news"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	DB         DBConfig         `mapstructure:"db"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// NewsConfig covers the upstream news API and the refresh cadence.
type NewsConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	PrimaryURL      string        `mapstructure:"primary_url"`
	SecondaryURL    string        `mapstructure:"secondary_url"`
	Query           string        `mapstructure:"query"`
	Category        string        `mapstructure:"category"`
	Language        string        `mapstructure:"language"`
	MaxResults      int           `mapstructure:"max_results"`
	UserAgent       string        `mapstructure:"user_agent"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	ArticleCount    int           `mapstructure:"article_count"`
	MaxDailyFetches int           `mapstructure:"max_daily_fetches"`
	SnapshotTTL     time.Duration `mapstructure:"snapshot_ttl"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	LockWait        time.Duration `mapstructure:"lock_wait"`
}

// ClassifierConfig configures the AI relevance stage.
type ClassifierConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxUncached       int           `mapstructure:"max_uncached"`
	BatchSize         int           `mapstructure:"batch_size"`
	BatchInterval     time.Duration `mapstructure:"batch_interval"`
	MinScore          int           `mapstructure:"min_score"`
	BackfillCap       int           `mapstructure:"backfill_cap"`
	DecisionCacheSize int           `mapstructure:"decision_cache_size"`
}

// CacheConfig points at the shared Redis-compatible store. An empty URL
// runs the service on the in-process store only.
type CacheConfig struct {
	URL         string        `mapstructure:"url"`
	Token       string        `mapstructure:"token"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	OpTimeout   time.Duration `mapstructure:"op_timeout"`
	RetryAfter  time.Duration `mapstructure:"retry_after"`
	LockPolicy  string        `mapstructure:"lock_policy"`
}

// ArchiveConfig selects where refreshed snapshots are archived.
type ArchiveConfig struct {
	Backend  string `mapstructure:"backend"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
	Prefix   string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for refresh notifications.
type PubSubConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
	EventName string `mapstructure:"event_name"`
}

// DBConfig controls the fetch attempt log. An empty DSN disables it.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// envAliases are the conventional variable names accepted alongside the
// NEWS_-prefixed ones.
var envAliases = map[string][]string{
	"server.port":        {"NEWS_SERVER_PORT", "PORT"},
	"news.api_key":       {"NEWS_NEWS_API_KEY", "GNEWS_API_KEY"},
	"classifier.api_key": {"NEWS_CLASSIFIER_API_KEY", "GEMINI_API_KEY"},
	"cache.url":          {"NEWS_CACHE_URL", "REDIS_URL"},
	"cache.token":        {"NEWS_CACHE_TOKEN", "REDIS_TOKEN"},
	"db.dsn":             {"NEWS_DB_DSN", "DATABASE_URL"},
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("logging.development", false)

	v.SetDefault("news.primary_url", "https://gnews.io/api/v4/search")
	v.SetDefault("news.secondary_url", "https://gnews.io/api/v4/top-headlines")
	v.SetDefault("news.query", `ocean OR marine OR "sea level" OR oceanography OR coral OR "marine heatwave"`)
	v.SetDefault("news.category", "science")
	v.SetDefault("news.language", "en")
	v.SetDefault("news.max_results", 50)
	v.SetDefault("news.user_agent", "ocean-news/1.0")
	v.SetDefault("news.fetch_timeout", 10*time.Second)
	v.SetDefault("news.article_count", 9)
	v.SetDefault("news.max_daily_fetches", 5)
	v.SetDefault("news.snapshot_ttl", 24*time.Hour)
	v.SetDefault("news.lock_ttl", 60*time.Second)
	v.SetDefault("news.lock_wait", 2*time.Second)

	v.SetDefault("classifier.model", "gemini-2.0-flash")
	v.SetDefault("classifier.timeout", 10*time.Second)
	v.SetDefault("classifier.max_uncached", 15)
	v.SetDefault("classifier.batch_size", 5)
	v.SetDefault("classifier.batch_interval", time.Second)
	v.SetDefault("classifier.min_score", 8)
	v.SetDefault("classifier.backfill_cap", 20)
	v.SetDefault("classifier.decision_cache_size", 4096)

	v.SetDefault("cache.dial_timeout", 3*time.Second)
	v.SetDefault("cache.op_timeout", 2*time.Second)
	v.SetDefault("cache.retry_after", 30*time.Second)
	v.SetDefault("cache.lock_policy", "fail_open")

	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.prefix", "snapshots")

	v.SetDefault("pubsub.backend", "none")
	v.SetDefault("pubsub.event_name", "news.refreshed")

	v.SetDefault("db.table", "news_fetch_attempts")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.max_conn_lifetime", 30*time.Minute)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, errors.New("server.port must be > 0"))
	}
	if c.News.ArticleCount <= 0 {
		errs = append(errs, errors.New("news.article_count must be > 0"))
	}
	if c.News.MaxDailyFetches <= 0 {
		errs = append(errs, errors.New("news.max_daily_fetches must be > 0"))
	}
	if c.News.SnapshotTTL <= 0 || c.News.LockTTL <= 0 {
		errs = append(errs, errors.New("news.snapshot_ttl and news.lock_ttl must be > 0"))
	}
	if c.News.PrimaryURL == "" {
		errs = append(errs, errors.New("news.primary_url is required"))
	}
	if c.Classifier.BatchSize <= 0 || c.Classifier.MaxUncached <= 0 {
		errs = append(errs, errors.New("classifier.batch_size and classifier.max_uncached must be > 0"))
	}
	if c.Classifier.MinScore < 0 || c.Classifier.MinScore > 10 {
		errs = append(errs, errors.New("classifier.min_score must be within 0..10"))
	}
	switch c.Cache.LockPolicy {
	case "fail_open", "fail_closed":
	default:
		errs = append(errs, fmt.Errorf("cache.lock_policy %q must be fail_open or fail_closed", c.Cache.LockPolicy))
	}
	switch c.Archive.Backend {
	case "none", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			errs = append(errs, errors.New("archive.base_dir is required for the local backend"))
		}
	case "gcs":
		if c.Archive.Bucket == "" {
			errs = append(errs, errors.New("archive.bucket is required for the gcs backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown archive.backend %q", c.Archive.Backend))
	}
	switch c.PubSub.Backend {
	case "none", "memory":
	case "pubsub":
		if c.PubSub.ProjectID == "" || c.PubSub.TopicID == "" {
			errs = append(errs, errors.New("pubsub.project_id and pubsub.topic_id are required for the pubsub backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown pubsub.backend %q", c.PubSub.Backend))
	}
	return errors.Join(errs...)
}

// ClassifierEnabled reports whether a classifier key is configured.
func (c Config) ClassifierEnabled() bool {
	return strings.TrimSpace(c.Classifier.APIKey) != ""
}

// NewsEnabled reports whether a news API key is configured.
func (c Config) NewsEnabled() bool {
	return strings.TrimSpace(c.News.APIKey) != ""
}
