package relevance

import (
	"context"
	"errors"

	"github.com/JakeFAU/ocean-news/internal/news"
)

// ErrRateLimited is returned (wrapped) by classifiers when the upstream model
// rejects a call for rate or quota reasons.
var ErrRateLimited = errors.New("classifier rate limited")

// Verdict is the classifier decision for one input item. Index is 1-based and
// refers to the position of the item in the batch passed to Classify.
type Verdict struct {
	Index    int    `json:"index"`
	Relevant bool   `json:"relevant"`
	Score    int    `json:"score"`
	Reason   string `json:"reason,omitempty"`
}

// Classifier scores a small batch of items for ocean relevance.
type Classifier interface {
	Classify(ctx context.Context, items []news.Item) ([]Verdict, error)
}

// Pacer spaces classifier calls. *ratelimit.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}
