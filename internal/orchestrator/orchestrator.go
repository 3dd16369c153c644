// Package orchestrator is the public entry point of the news pipeline. It
// decides between serving today's snapshot and refreshing it, coordinates the
// distributed lock and daily quota, and always produces a result.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/ocean-news/internal/kv"
	"github.com/JakeFAU/ocean-news/internal/lock"
	"github.com/JakeFAU/ocean-news/internal/metrics"
	"github.com/JakeFAU/ocean-news/internal/news"
)

// Shared store keys.
const (
	CacheKey = "news:cached_articles"
	LockKey  = "news:fetch_lock"
)

// Notes attached to fallback results.
const (
	NoteNoAPIKey       = "news API key not configured; showing curated ocean stories"
	NoteQuotaExhausted = "daily news fetch limit reached; showing curated ocean stories"
	NoteFetchFailed    = "live news unavailable; showing curated ocean stories"
	NoteRefreshBusy    = "news refresh in progress; showing curated ocean stories"
	NoteLockFailed     = "news refresh could not be coordinated; showing curated ocean stories"
)

// QuotaTracker is satisfied by *quota.Tracker.
type QuotaTracker interface {
	Read(ctx context.Context) (news.DailyFetchState, error)
	RecordAttempt(ctx context.Context, wasSuccessful bool) (news.DailyFetchState, error)
}

// Locker is satisfied by *lock.Locker.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*lock.Lease, error)
}

// WaitFunc pauses between a denied lock and the cache re-check.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Config holds the pipeline timings and sizes.
type Config struct {
	ArticleCount  int
	SnapshotTTL   time.Duration
	LockTTL       time.Duration
	LockWait      time.Duration
	ArchivePrefix string
	RefreshTopic  string
}

// DefaultConfig returns production values.
func DefaultConfig() Config {
	return Config{
		ArticleCount:  9,
		SnapshotTTL:   24 * time.Hour,
		LockTTL:       60 * time.Second,
		LockWait:      2 * time.Second,
		ArchivePrefix: "snapshots",
		RefreshTopic:  "news.refreshed",
	}
}

// Deps are the collaborators of an Orchestrator. Store, Quota, Locker, Filter
// and Clock are required. A nil Fetcher means no news API key is configured.
// Archive, Publisher, Attempts and IDs are optional side channels.
type Deps struct {
	Store     kv.Store
	Quota     QuotaTracker
	Locker    Locker
	Fetcher   news.Fetcher
	Filter    news.Filter
	Clock     news.Clock
	Archive   news.BlobStore
	Publisher news.Publisher
	Attempts  news.AttemptStore
	IDs       news.IDGenerator
	Wait      WaitFunc
	Logger    *zap.Logger
}

// Orchestrator serves the news feed.
type Orchestrator struct {
	cfg      Config
	deps     Deps
	logger   *zap.Logger
	refreshG singleflight.Group
}

// New validates deps and fills defaults.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("orchestrator store is required")
	case deps.Quota == nil:
		return nil, errors.New("orchestrator quota tracker is required")
	case deps.Locker == nil:
		return nil, errors.New("orchestrator locker is required")
	case deps.Filter == nil:
		return nil, errors.New("orchestrator filter is required")
	case deps.Clock == nil:
		return nil, errors.New("orchestrator clock is required")
	}
	def := DefaultConfig()
	if cfg.ArticleCount <= 0 {
		cfg.ArticleCount = def.ArticleCount
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = def.SnapshotTTL
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	if cfg.LockWait < 0 {
		cfg.LockWait = 0
	}
	if cfg.RefreshTopic == "" {
		cfg.RefreshTopic = def.RefreshTopic
	}
	if deps.Wait == nil {
		deps.Wait = sleep
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Orchestrator{cfg: cfg, deps: deps, logger: deps.Logger}, nil
}

// Get returns exactly ArticleCount items. It never returns an error; every
// failure degrades to the curated fallback list, which is never cached.
func (o *Orchestrator) Get(ctx context.Context) news.Result {
	if res, ok := o.cached(ctx); ok {
		metrics.ObserveRequest("cache_hit")
		return res
	}
	if o.deps.Fetcher == nil {
		o.logger.Warn("news api key missing; serving fallback")
		return o.fallback(NoteNoAPIKey)
	}

	// Concurrent misses inside this process share one refresh. The shared
	// work must not die with whichever caller happened to start it.
	v, _, shared := o.refreshG.Do("refresh", func() (any, error) {
		return o.refresh(context.WithoutCancel(ctx)), nil
	})
	res, _ := v.(news.Result)
	if shared {
		o.logger.Debug("joined in-flight refresh", zap.String("source", string(res.Source)))
	}
	res.Articles = append([]news.Item(nil), res.Articles...)
	return res
}

func (o *Orchestrator) refresh(ctx context.Context) news.Result {
	lease, err := o.deps.Locker.Acquire(ctx, LockKey, o.cfg.LockTTL)
	if err != nil {
		o.logger.Warn("fetch lock acquisition failed", zap.Error(err))
		return o.fallback(NoteLockFailed)
	}
	if !lease.Held {
		return o.waitForPeer(ctx, lease.Outcome)
	}
	defer lease.Release(ctx)

	// Another instance may have finished a refresh between our cache read and
	// the lock acquisition.
	if res, ok := o.cached(ctx); ok {
		metrics.ObserveRequest("cache_hit")
		return res
	}

	state, err := o.deps.Quota.Read(ctx)
	if err != nil {
		o.logger.Warn("daily quota unreadable; serving fallback", zap.Error(err))
		return o.fallback(NoteFetchFailed)
	}
	if state.Exhausted() {
		o.logger.Warn("daily fetch quota exhausted; serving fallback",
			zap.String("date", state.Date),
			zap.Int("successful_fetches", state.SuccessfulFetches),
			zap.Int("max_fetches", state.MaxFetches),
		)
		return o.fallback(NoteQuotaExhausted)
	}

	fetched, err := o.deps.Fetcher.Fetch(ctx)
	if err == nil && len(fetched.Articles) == 0 {
		err = errors.New("upstream returned no articles")
	}
	if err != nil {
		o.logger.Warn("news fetch failed; serving fallback", zap.Error(err))
		o.recordFailure(ctx, fetched.Source, err)
		return o.fallback(NoteFetchFailed)
	}

	valid := news.FilterValid(fetched.Articles)
	relevant := o.deps.Filter.Apply(ctx, valid)
	articles := news.Pad(relevant, news.Fallback(), o.cfg.ArticleCount)

	snap := news.Snapshot{
		Articles:      articles,
		FetchedAt:     o.deps.Clock.Now().UTC(),
		WasSuccessful: true,
		Source:        fetched.Source,
	}
	if err := kv.SetJSON(ctx, o.deps.Store, CacheKey, snap, o.cfg.SnapshotTTL); err != nil {
		o.logger.Warn("snapshot cache write failed", zap.Error(err))
	}
	if _, err := o.deps.Quota.RecordAttempt(ctx, true); err != nil {
		o.logger.Warn("record successful fetch failed", zap.Error(err))
	}
	o.logAttempt(ctx, news.FetchAttempt{
		Source:       fetched.Source,
		Success:      true,
		ArticleCount: len(fetched.Articles),
	})
	o.announce(ctx, snap)

	o.logger.Info("news refreshed",
		zap.String("source", string(fetched.Source)),
		zap.Int("fetched", len(fetched.Articles)),
		zap.Int("valid", len(valid)),
		zap.Int("relevant", len(relevant)),
	)
	metrics.ObserveRequest("refreshed")
	return news.Result{Articles: articles, Source: fetched.Source}
}

// waitForPeer handles a lease we do not hold: either a peer holds the lock or
// the store is unreachable under a fail-closed policy.
func (o *Orchestrator) waitForPeer(ctx context.Context, outcome lock.Outcome) news.Result {
	if outcome != lock.Denied {
		o.logger.Warn("fetch lock unavailable; serving fallback", zap.Stringer("outcome", outcome))
		return o.fallback(NoteLockFailed)
	}
	o.logger.Info("fetch lock held elsewhere; waiting for peer refresh", zap.Duration("wait", o.cfg.LockWait))
	if err := o.deps.Wait(ctx, o.cfg.LockWait); err != nil {
		o.logger.Debug("lock wait interrupted", zap.Error(err))
	}
	if res, ok := o.cached(ctx); ok {
		metrics.ObserveRequest("cache_hit")
		return res
	}
	return o.fallback(NoteRefreshBusy)
}

// cached reads today's snapshot. Stale or unusable entries are deleted and
// reported as a miss.
func (o *Orchestrator) cached(ctx context.Context) (news.Result, bool) {
	var snap news.Snapshot
	ok, err := kv.GetJSON(ctx, o.deps.Store, CacheKey, &snap)
	if err != nil {
		o.logger.Warn("snapshot unreadable; treating as miss", zap.Error(err))
		o.evict(ctx)
		return news.Result{}, false
	}
	if !ok {
		return news.Result{}, false
	}
	if snap.Stale(o.deps.Clock.Now(), o.cfg.SnapshotTTL) || !snap.WasSuccessful ||
		snap.Source == news.SourceFallback || len(snap.Articles) == 0 {
		o.logger.Info("discarding unusable snapshot",
			zap.Time("fetched_at", snap.FetchedAt),
			zap.String("source", string(snap.Source)),
		)
		o.evict(ctx)
		return news.Result{}, false
	}

	screened := o.deps.Filter.Screen(snap.Articles)
	return news.Result{
		Articles: news.Pad(screened, news.Fallback(), o.cfg.ArticleCount),
		Source:   snap.Source,
		Cached:   true,
	}, true
}

func (o *Orchestrator) evict(ctx context.Context) {
	if err := o.deps.Store.Delete(ctx, CacheKey); err != nil {
		o.logger.Warn("snapshot eviction failed", zap.Error(err))
	}
}

func (o *Orchestrator) fallback(note string) news.Result {
	metrics.ObserveRequest("fallback")
	return news.Result{
		Articles: news.FallbackN(o.cfg.ArticleCount),
		Source:   news.SourceFallback,
		Note:     note,
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, source news.Source, cause error) {
	if _, err := o.deps.Quota.RecordAttempt(ctx, false); err != nil {
		o.logger.Warn("record failed fetch failed", zap.Error(err))
	}
	if source == "" {
		source = news.SourcePrimary
	}
	o.logAttempt(ctx, news.FetchAttempt{Source: source, ErrorText: cause.Error()})
}

func (o *Orchestrator) logAttempt(ctx context.Context, attempt news.FetchAttempt) {
	if o.deps.Attempts == nil {
		return
	}
	now := o.deps.Clock.Now().UTC()
	attempt.AttemptedAt = now
	attempt.Day = news.DayKey(now)
	if o.deps.IDs != nil {
		id, err := o.deps.IDs.NewID()
		if err != nil {
			o.logger.Warn("attempt id generation failed", zap.Error(err))
			return
		}
		attempt.ID = id
	}
	if err := o.deps.Attempts.RecordAttempt(ctx, attempt); err != nil {
		o.logger.Warn("fetch attempt log write failed", zap.Error(err))
	}
}

// announce archives the snapshot and publishes a refresh event. Both are
// best-effort.
func (o *Orchestrator) announce(ctx context.Context, snap news.Snapshot) {
	event := news.RefreshEvent{
		FetchedAt:    snap.FetchedAt,
		Source:       snap.Source,
		ArticleCount: len(snap.Articles),
	}
	if o.deps.Archive != nil {
		uri, err := o.archive(ctx, snap)
		if err != nil {
			o.logger.Warn("snapshot archive failed", zap.Error(err))
		} else {
			event.ArchiveURI = uri
		}
	}
	if o.deps.Publisher != nil {
		msgID, err := o.deps.Publisher.Publish(ctx, o.cfg.RefreshTopic, event)
		if err != nil {
			o.logger.Warn("refresh event publish failed", zap.Error(err))
			return
		}
		o.logger.Debug("refresh event published", zap.String("message_id", msgID))
	}
}

func (o *Orchestrator) archive(ctx context.Context, snap news.Snapshot) (string, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	path := ArchivePath(o.cfg.ArchivePrefix, snap.FetchedAt)
	uri, err := o.deps.Archive.PutObject(ctx, path, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("put %s: %w", path, err)
	}
	return uri, nil
}

// ArchivePath is <prefix>/<YYYY-MM-DD>/<unix>.json.
func ArchivePath(prefix string, fetchedAt time.Time) string {
	p := fmt.Sprintf("%s/%d.json", news.DayKey(fetchedAt), fetchedAt.Unix())
	if prefix == "" {
		return p
	}
	return prefix + "/" + p
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
