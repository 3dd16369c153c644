package kv

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ocean-news/internal/metrics"
)

// Layered serves Get, Set and Delete from a shared store and falls back to a
// process-local store whenever the shared one is unreachable. In that mode the
// data is only visible to the current process.
//
// SetIfAbsent is passed straight through: mutual exclusion cannot be emulated
// locally, so the caller must see ErrUnavailable and apply its own policy.
type Layered struct {
	shared Store
	local  Store
	logger *zap.Logger
}

// NewLayered wraps shared with a local fallback.
func NewLayered(shared, local Store, logger *zap.Logger) *Layered {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Layered{shared: shared, local: local, logger: logger}
}

// Get implements Store.
func (l *Layered) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := l.shared.Get(ctx, key)
	if err == nil {
		return value, ok, nil
	}
	if !errors.Is(err, ErrUnavailable) {
		return "", false, err
	}
	l.degraded("get", key, err)
	return l.local.Get(ctx, key)
}

// Set implements Store.
func (l *Layered) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	err := l.shared.Set(ctx, key, value, ttl)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUnavailable) {
		return err
	}
	l.degraded("set", key, err)
	return l.local.Set(ctx, key, value, ttl)
}

// Delete implements Store. The local copy is always removed so a stale
// fallback entry cannot resurface during a later outage.
func (l *Layered) Delete(ctx context.Context, key string) error {
	if err := l.local.Delete(ctx, key); err != nil {
		return err
	}
	err := l.shared.Delete(ctx, key)
	if err != nil && errors.Is(err, ErrUnavailable) {
		l.degraded("delete", key, err)
		return nil
	}
	return err
}

// SetIfAbsent implements Store against the shared store only.
func (l *Layered) SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return l.shared.SetIfAbsent(ctx, key, value, ttl)
}

// DeleteIfEqual implements CompareDeleter against the shared store, the only
// place lock markers live.
func (l *Layered) DeleteIfEqual(ctx context.Context, key string, value string) (bool, error) {
	return DeleteIfEqual(ctx, l.shared, key, value)
}

func (l *Layered) degraded(op, key string, err error) {
	metrics.ObserveStoreFallback(op)
	l.logger.Warn("shared store unreachable; using process memory",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
}
