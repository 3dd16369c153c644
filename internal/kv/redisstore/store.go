// Package redisstore implements kv.Store on Redis via go-redis.
//
// The connection is established lazily on first use and memoized for the life
// of the process. Concurrent first callers share a single in-flight dial; a
// failed dial is remembered for RetryAfter so an outage does not make every
// request pay the dial timeout.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/ocean-news/internal/kv"
)

// Config controls how the store connects.
type Config struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string
	// Token overrides the password embedded in URL when set.
	Token       string
	DialTimeout time.Duration
	OpTimeout   time.Duration
	RetryAfter  time.Duration
}

// Store is a lazily connected Redis-backed kv.Store.
type Store struct {
	cfg    Config
	logger *zap.Logger
	group  singleflight.Group
	now    func() time.Time

	mu          sync.RWMutex
	client      *redis.Client
	lastFailure time.Time
	lastErr     error
}

// New validates cfg and returns an unconnected Store.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	if _, err := redis.ParseURL(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{cfg: cfg, logger: logger, now: time.Now}, nil
}

// Close releases the connection if one was established.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	if err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}

// Ping reports whether the shared store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	client, err := s.conn(ctx)
	if err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()
	if err := client.Ping(opCtx).Err(); err != nil {
		return unavailable("ping", "", err)
	}
	return nil
}

// Get implements kv.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return "", false, err
	}
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()
	value, err := client.Get(opCtx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", key, err)
	}
	return value, true, nil
}

// Set implements kv.Store.
func (s *Store) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	client, err := s.conn(ctx)
	if err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()
	if err := client.Set(opCtx, key, value, expiration(ttl)).Err(); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// Delete implements kv.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	client, err := s.conn(ctx)
	if err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()
	if err := client.Del(opCtx, key).Err(); err != nil {
		return unavailable("del", key, err)
	}
	return nil
}

var deleteIfEqualScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// DeleteIfEqual implements kv.CompareDeleter with a GET/DEL script.
func (s *Store) DeleteIfEqual(ctx context.Context, key string, value string) (bool, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()
	n, err := deleteIfEqualScript.Run(opCtx, client, []string{key}, value).Int()
	if err != nil {
		return false, unavailable("delete-if-equal", key, err)
	}
	return n > 0, nil
}

// SetIfAbsent implements kv.Store with SET NX.
func (s *Store) SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()
	ok, err := client.SetNX(opCtx, key, value, expiration(ttl)).Result()
	if err != nil {
		return false, unavailable("setnx", key, err)
	}
	return ok, nil
}

func (s *Store) conn(ctx context.Context) (*redis.Client, error) {
	s.mu.RLock()
	client := s.client
	lastFailure, lastErr := s.lastFailure, s.lastErr
	s.mu.RUnlock()
	if client != nil {
		return client, nil
	}
	if s.cfg.RetryAfter > 0 && !lastFailure.IsZero() && s.now().Sub(lastFailure) < s.cfg.RetryAfter {
		return nil, lastErr
	}

	v, err, shared := s.group.Do("connect", func() (any, error) {
		s.mu.RLock()
		existing := s.client
		s.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}
		// The connection outlives the request that triggered it, so a
		// caller going away must not abort the shared dial.
		return s.dial(context.WithoutCancel(ctx))
	})
	if shared {
		s.logger.Debug("joined in-flight redis connect")
	}
	if err != nil {
		return nil, err
	}
	client, ok := v.(*redis.Client)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected connect result %T", kv.ErrUnavailable, v)
	}
	return client, nil
}

func (s *Store) dial(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if s.cfg.Token != "" {
		opts.Password = s.cfg.Token
	}
	opts.DialTimeout = s.cfg.DialTimeout
	opts.ReadTimeout = s.cfg.OpTimeout
	opts.WriteTimeout = s.cfg.OpTimeout
	opts.MaxRetries = 1

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			s.logger.Warn("failed to close redis client after ping failure", zap.Error(closeErr))
		}
		connErr := unavailable("connect", "", err)
		if ctx.Err() == nil {
			s.mu.Lock()
			s.lastFailure = s.now()
			s.lastErr = connErr
			s.mu.Unlock()
		}
		s.logger.Warn("redis connect failed", zap.String("addr", opts.Addr), zap.Error(err))
		return nil, connErr
	}

	s.mu.Lock()
	s.client = client
	s.lastFailure = time.Time{}
	s.lastErr = nil
	s.mu.Unlock()
	s.logger.Info("redis connected", zap.String("addr", opts.Addr))
	return client, nil
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl
}

func unavailable(op, key string, err error) error {
	if key == "" {
		return fmt.Errorf("redis %s: %w: %w", op, kv.ErrUnavailable, err)
	}
	return fmt.Errorf("redis %s %q: %w: %w", op, key, kv.ErrUnavailable, err)
}
