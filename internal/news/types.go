package news

import (
	"time"
)

// Source identifies where a set of articles came from.
type Source string

// Source values recorded on snapshots and responses.
const (
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
	SourceFallback  Source = "fallback"
)

// Item is a single news article as served to callers.
type Item struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Image       string    `json:"image"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
}

// Snapshot is the cached article set plus fetch metadata. Snapshots are only
// created after a successful upstream fetch and never carry SourceFallback.
type Snapshot struct {
	Articles      []Item    `json:"articles"`
	FetchedAt     time.Time `json:"fetchedAt"`
	WasSuccessful bool      `json:"wasSuccessful"`
	Source        Source    `json:"source"`
}

// Age reports how old the snapshot is relative to now.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// Stale reports whether the snapshot has reached ttl.
func (s Snapshot) Stale(now time.Time, ttl time.Duration) bool {
	return s.Age(now) >= ttl
}

// DailyFetchState tracks successful upstream fetches for one UTC calendar day.
type DailyFetchState struct {
	Date              string    `json:"date"`
	SuccessfulFetches int       `json:"successfulFetches"`
	MaxFetches        int       `json:"maxFetches"`
	LastFetchTime     time.Time `json:"lastFetchTime"`
}

// Exhausted reports whether no fetches remain for the day.
func (s DailyFetchState) Exhausted() bool {
	return s.SuccessfulFetches >= s.MaxFetches
}

// Remaining returns the number of fetches still available today.
func (s DailyFetchState) Remaining() int {
	if s.Exhausted() {
		return 0
	}
	return s.MaxFetches - s.SuccessfulFetches
}

// Result is what the orchestrator hands to the HTTP layer.
type Result struct {
	Articles []Item `json:"data"`
	Source   Source `json:"source"`
	Note     string `json:"note,omitempty"`
	// Cached is true when the articles were served from a snapshot.
	Cached bool `json:"cached"`
}

// FetchAttempt is one upstream fetch outcome recorded in the attempt log.
type FetchAttempt struct {
	ID           string    `json:"id"`
	AttemptedAt  time.Time `json:"attemptedAt"`
	Day          string    `json:"day"`
	Source       Source    `json:"source"`
	Success      bool      `json:"success"`
	ArticleCount int       `json:"articleCount"`
	ErrorText    string    `json:"errorText,omitempty"`
}

// RefreshEvent is published after a new snapshot has been cached.
type RefreshEvent struct {
	FetchedAt    time.Time `json:"fetchedAt"`
	Source       Source    `json:"source"`
	ArticleCount int       `json:"articleCount"`
	ArchiveURI   string    `json:"archiveUri,omitempty"`
}

// DayKey formats t as the UTC calendar day used in quota keys.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
