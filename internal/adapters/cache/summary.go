// Package cache keeps computed report summaries keyed by report id.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/matchreport/internal/domain/scoring"
)

const defaultSize = 5_000

type entry struct {
	version time.Time
	summary scoring.Summary
}

// SummaryCache is a bounded LRU of summaries. Each entry carries the
// report's UpdatedAt it was computed from, so readers can tell a stale
// summary from a fresh one.
type SummaryCache struct {
	entries *lru.Cache[string, entry]
}

// NewSummaryCache creates a cache holding at most size summaries.
func NewSummaryCache(size int) *SummaryCache {
	if size <= 0 {
		size = defaultSize
	}
	// Only fails for a non-positive size.
	entries, err := lru.New[string, entry](size)
	if err != nil {
		panic(err)
	}
	return &SummaryCache{entries: entries}
}

// Put stores s for report id at version. An older version never replaces a newer one.
func (c *SummaryCache) Put(id string, version time.Time, s scoring.Summary) {
	if cur, ok := c.entries.Peek(id); ok && cur.version.After(version) {
		return
	}
	c.entries.Add(id, entry{version: version, summary: s})
}

// Get returns the summary for id if it was computed from version.
func (c *SummaryCache) Get(id string, version time.Time) (scoring.Summary, bool) {
	e, ok := c.entries.Get(id)
	if !ok || !e.version.Equal(version) {
		return scoring.Summary{}, false
	}
	return e.summary, true
}

// Latest returns the newest cached summary for id and its version.
func (c *SummaryCache) Latest(id string) (scoring.Summary, time.Time, bool) {
	e, ok := c.entries.Get(id)
	return e.summary, e.version, ok
}

// Remove drops id.
func (c *SummaryCache) Remove(id string) {
	c.entries.Remove(id)
}

// Len returns the number of cached summaries.
func (c *SummaryCache) Len() int {
	return c.entries.Len()
}
