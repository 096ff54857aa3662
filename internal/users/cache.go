package users

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

const defaultSummaryCacheSize = 2048

// SummaryCache keeps recently displayed user summaries in process. Entries are
// dropped explicitly when the profile changes.
type SummaryCache struct {
	cache *lru.Cache
}

// NewSummaryCache builds a cache holding at most size summaries.
func NewSummaryCache(size int) (*SummaryCache, error) {
	if size <= 0 {
		size = defaultSummaryCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &SummaryCache{cache: cache}, nil
}

func (c *SummaryCache) Get(id uuid.UUID) (Summary, bool) {
	if c == nil {
		return Summary{}, false
	}
	value, ok := c.cache.Get(id)
	if !ok {
		return Summary{}, false
	}
	summary, ok := value.(Summary)
	return summary, ok
}

func (c *SummaryCache) Add(summary Summary) {
	if c == nil {
		return
	}
	c.cache.Add(summary.ID, summary)
}

// Invalidate removes the cached summary for id.
func (c *SummaryCache) Invalidate(id uuid.UUID) {
	if c == nil {
		return
	}
	c.cache.Remove(id)
}

func (c *SummaryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
