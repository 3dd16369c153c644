// Package lock implements a short-lived cross-instance mutual exclusion marker
// on top of kv.Store's atomic set-if-absent.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ocean-news/internal/kv"
	"github.com/JakeFAU/ocean-news/internal/metrics"
)

// Outcome is the raw result of an acquisition attempt.
type Outcome int

// Acquisition outcomes. Indeterminate means the shared store could not be
// reached, so nobody knows whether another holder exists.
const (
	Denied Outcome = iota
	Granted
	Indeterminate
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Policy decides whether an Indeterminate outcome lets the caller proceed.
type Policy int

// Policies for an unreachable store.
const (
	// FailOpen treats an unreachable store as a granted lock. This degrades
	// to at-most-one fetch per process instead of disabling the feature.
	FailOpen Policy = iota
	FailClosed
)

// Lease is the result handed to callers. Release must be called on every exit
// path once Held is true.
type Lease struct {
	Key     string
	Outcome Outcome
	Held    bool
	token   string
	locker  *Locker
}

// Release deletes the lock key. It is a no-op when the lease is not held or
// the key was acquired under an Indeterminate outcome.
func (l *Lease) Release(ctx context.Context) {
	if l == nil || !l.Held || l.locker == nil {
		return
	}
	l.Held = false
	if l.Outcome != Granted {
		return
	}
	l.locker.release(ctx, l.Key, l.token)
}

// TokenFunc produces the advisory value stored under the lock key.
type TokenFunc func() (string, error)

// Locker acquires and releases TTL-bounded locks.
type Locker struct {
	store  kv.Store
	policy Policy
	token  TokenFunc
	logger *zap.Logger
}

// New builds a Locker. token may be nil, in which case the acquisition
// timestamp is stored.
func New(store kv.Store, policy Policy, token TokenFunc, logger *zap.Logger) *Locker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if token == nil {
		token = func() (string, error) {
			return time.Now().UTC().Format(time.RFC3339Nano), nil
		}
	}
	return &Locker{store: store, policy: policy, token: token, logger: logger}
}

// Acquire tries to take key for ttl.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be > 0")
	}
	token, err := l.token()
	if err != nil {
		return nil, fmt.Errorf("generate lock token: %w", err)
	}

	outcome := Denied
	ok, err := l.store.SetIfAbsent(ctx, key, token, ttl)
	switch {
	case err == nil && ok:
		outcome = Granted
	case err == nil:
		outcome = Denied
	case errors.Is(err, kv.ErrUnavailable):
		outcome = Indeterminate
		l.logger.Warn("lock store unreachable", zap.String("key", key), zap.Error(err))
	default:
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	metrics.ObserveLock(outcome.String())

	lease := &Lease{Key: key, Outcome: outcome, token: token, locker: l}
	switch outcome {
	case Granted:
		lease.Held = true
	case Indeterminate:
		lease.Held = l.policy == FailOpen
	}
	return lease, nil
}

func (l *Locker) release(ctx context.Context, key, token string) {
	deleted, err := kv.DeleteIfEqual(ctx, l.store, key, token)
	if err != nil {
		l.logger.Warn("lock release failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !deleted {
		l.logger.Warn("lock expired before release; left the current holder in place", zap.String("key", key))
		return
	}
	l.logger.Debug("lock released", zap.String("key", key), zap.String("token", token))
}
