package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/ocean-news/internal/kv"
	"github.com/JakeFAU/ocean-news/internal/news"
)

// SnapshotStatus describes the cached snapshot without its articles.
type SnapshotStatus struct {
	Present      bool        `json:"present"`
	FetchedAt    *time.Time  `json:"fetchedAt,omitempty"`
	Source       news.Source `json:"source,omitempty"`
	ArticleCount int         `json:"articleCount"`
}

// Status is the read-only view served by the status endpoint.
type Status struct {
	Date              string         `json:"date"`
	SuccessfulFetches int            `json:"successfulFetches"`
	MaxFetches        int            `json:"maxFetches"`
	Remaining         int            `json:"remaining"`
	LastFetchTime     *time.Time     `json:"lastFetchTime,omitempty"`
	Snapshot          SnapshotStatus `json:"snapshot"`
}

// Status reports today's quota and snapshot. It never fetches.
func (o *Orchestrator) Status(ctx context.Context) (Status, error) {
	state, err := o.deps.Quota.Read(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("read daily state: %w", err)
	}
	st := Status{
		Date:              state.Date,
		SuccessfulFetches: state.SuccessfulFetches,
		MaxFetches:        state.MaxFetches,
		Remaining:         state.Remaining(),
	}
	if !state.LastFetchTime.IsZero() {
		t := state.LastFetchTime
		st.LastFetchTime = &t
	}

	var snap news.Snapshot
	ok, err := kv.GetJSON(ctx, o.deps.Store, CacheKey, &snap)
	if err != nil {
		return Status{}, fmt.Errorf("read snapshot: %w", err)
	}
	if ok && !snap.Stale(o.deps.Clock.Now(), o.cfg.SnapshotTTL) {
		fetched := snap.FetchedAt
		st.Snapshot = SnapshotStatus{
			Present:      true,
			FetchedAt:    &fetched,
			Source:       snap.Source,
			ArticleCount: len(snap.Articles),
		}
	}
	return st, nil
}
