package relevance

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/JakeFAU/ocean-news/internal/news"
)

const decisionKeyLen = 100

// DecisionCache memoizes per-item relevance decisions for the life of the
// process. It is never shared across instances; losing it only costs extra
// classifier calls.
type DecisionCache struct {
	cache *lru.Cache[string, bool]
}

// NewDecisionCache builds a cache bounded to size entries.
func NewDecisionCache(size int) (*DecisionCache, error) {
	if size <= 0 {
		size = 4096
	}
	c, err := lru.New[string, bool](size)
	if err != nil {
		return nil, fmt.Errorf("create decision cache: %w", err)
	}
	return &DecisionCache{cache: c}, nil
}

// DecisionKey is the truncated "title:description" string used as cache key.
func DecisionKey(item news.Item) string {
	key := []rune(item.Title + ":" + item.Description)
	if len(key) > decisionKeyLen {
		key = key[:decisionKeyLen]
	}
	return string(key)
}

// Get returns the cached decision for item.
func (d *DecisionCache) Get(item news.Item) (relevant bool, ok bool) {
	return d.cache.Get(DecisionKey(item))
}

// Put records a decision for item.
func (d *DecisionCache) Put(item news.Item, relevant bool) {
	d.cache.Add(DecisionKey(item), relevant)
}

// Len returns the number of cached decisions.
func (d *DecisionCache) Len() int {
	return d.cache.Len()
}
