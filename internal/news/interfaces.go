package news

import (
	"context"
	"io"
	"time"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Fetcher retrieves raw candidate articles from the upstream news API.
type Fetcher interface {
	Fetch(ctx context.Context) (FetchResult, error)
}

// FetchResult is the raw output of a successful upstream call.
type FetchResult struct {
	Articles []Item
	Source   Source
}

// Filter narrows raw candidates down to ocean-relevant items.
type Filter interface {
	Apply(ctx context.Context, items []Item) []Item
	// Screen re-applies only the deterministic exclusion rules.
	Screen(items []Item) []Item
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes refresh events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// AttemptStore persists upstream fetch attempts for auditing.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, attempt FetchAttempt) error
}

// IDGenerator produces unique identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
