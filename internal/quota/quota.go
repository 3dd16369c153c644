// Package quota tracks how many successful upstream news fetches have been
// spent on the current UTC day.
//
// The read-modify-write in RecordAttempt is not atomic against concurrent
// callers on the shared store. The only caller that records attempts does so
// while holding the fetch lock, which serializes it in normal operation; under
// a store outage the lock fails open and the count is best-effort.
package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ocean-news/internal/kv"
	"github.com/JakeFAU/ocean-news/internal/metrics"
	"github.com/JakeFAU/ocean-news/internal/news"
)

// KeyPrefix namespaces daily state keys; the UTC date is appended.
const KeyPrefix = "news:daily_state:"

// Config controls the tracker.
type Config struct {
	MaxFetches int
	TTL        time.Duration
}

// Tracker reads and updates the DailyFetchState for today.
type Tracker struct {
	store  kv.Store
	clock  news.Clock
	cfg    Config
	logger *zap.Logger
}

// New builds a Tracker.
func New(store kv.Store, clock news.Clock, cfg Config, logger *zap.Logger) (*Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("quota store is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("quota clock is required")
	}
	if cfg.MaxFetches <= 0 {
		return nil, fmt.Errorf("quota max fetches must be > 0")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, clock: clock, cfg: cfg, logger: logger}, nil
}

// Key returns the store key for the given day.
func Key(day string) string {
	return KeyPrefix + day
}

// Read returns today's state, creating and persisting a zeroed one if absent.
func (t *Tracker) Read(ctx context.Context) (news.DailyFetchState, error) {
	day := news.DayKey(t.clock.Now())
	key := Key(day)

	var state news.DailyFetchState
	ok, err := kv.GetJSON(ctx, t.store, key, &state)
	if err != nil {
		// A corrupt entry would otherwise block fetching for the rest of the
		// day; it is replaced with a zero state below.
		t.logger.Warn("daily state unreadable; resetting", zap.String("key", key), zap.Error(err))
		ok = false
	}
	if ok && state.Date == day {
		state.MaxFetches = t.cfg.MaxFetches
		metrics.SetQuotaRemaining(state.Remaining())
		return state, nil
	}

	state = news.DailyFetchState{Date: day, MaxFetches: t.cfg.MaxFetches}
	if err := kv.SetJSON(ctx, t.store, key, state, t.cfg.TTL); err != nil {
		return news.DailyFetchState{}, fmt.Errorf("persist daily state: %w", err)
	}
	metrics.SetQuotaRemaining(state.Remaining())
	return state, nil
}

// RecordAttempt re-reads today's state and counts the attempt. Only successful
// attempts consume quota, and the counter never exceeds MaxFetches.
func (t *Tracker) RecordAttempt(ctx context.Context, wasSuccessful bool) (news.DailyFetchState, error) {
	state, err := t.Read(ctx)
	if err != nil {
		return news.DailyFetchState{}, err
	}
	state.LastFetchTime = t.clock.Now().UTC()
	if wasSuccessful {
		if state.Exhausted() {
			t.logger.Warn("successful fetch recorded with quota already exhausted",
				zap.String("date", state.Date),
				zap.Int("successful_fetches", state.SuccessfulFetches),
			)
		} else {
			state.SuccessfulFetches++
		}
	}
	if err := kv.SetJSON(ctx, t.store, Key(state.Date), state, t.cfg.TTL); err != nil {
		return news.DailyFetchState{}, fmt.Errorf("persist daily state: %w", err)
	}
	metrics.SetQuotaRemaining(state.Remaining())
	t.logger.Info("fetch attempt recorded",
		zap.String("date", state.Date),
		zap.Bool("success", wasSuccessful),
		zap.Int("successful_fetches", state.SuccessfulFetches),
		zap.Int("max_fetches", state.MaxFetches),
	)
	return state, nil
}
