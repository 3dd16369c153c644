// Package kv defines the key-value contract shared by the snapshot cache, the
// daily quota tracker and the fetch lock. Values always cross the boundary as
// serialized text; JSON encoding is applied once here by GetJSON and SetJSON.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks failures caused by an unreachable shared store. Callers
// branch on it with errors.Is to decide their own degradation policy.
var ErrUnavailable = errors.New("shared store unavailable")

// Store is a TTL-aware key-value store.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value with ttl. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Delete removes key; absence is not an error.
	Delete(ctx context.Context, key string) error
	// SetIfAbsent atomically stores value only when key does not exist.
	SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

// CompareDeleter is implemented by stores that can delete a key only while it
// still holds an expected value, as one atomic step.
type CompareDeleter interface {
	DeleteIfEqual(ctx context.Context, key string, value string) (bool, error)
}

// DeleteIfEqual removes key only while it holds value. Stores without an
// atomic CompareDeleter get a read-then-delete, which leaves a small window in
// which a new value can be removed.
func DeleteIfEqual(ctx context.Context, s Store, key string, value string) (bool, error) {
	if cd, ok := s.(CompareDeleter); ok {
		return cd.DeleteIfEqual(ctx, key, value)
	}
	current, ok, err := s.Get(ctx, key)
	if err != nil || !ok || current != value {
		return false, err
	}
	if err := s.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// GetJSON reads key and decodes it into dst. A value that cannot be decoded is
// reported as an error, not as a miss.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value as JSON and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data), ttl)
}
