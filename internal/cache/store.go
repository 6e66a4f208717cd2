// Package cache holds the per-(date, range, group) summary cache shared by
// the primary fetch path and the prefetch workers.
package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"board-activity/internal/domain"
)

const defaultMaxEntries = 512

// Entry is the last known outcome for one key. Summary and Err can coexist:
// a failed refresh records its error while the previous summary is retained,
// so the UI can show stale data with a warning.
type Entry struct {
	Summary  *domain.DiffSummary
	Err      string
	StoredAt time.Time
}

// Store is an explicit, injected cache object. The key space within one
// session is bounded by the selectable (date, range, group) combinations;
// an LRU bound on key count keeps a long-lived process from growing without
// limit. There is no TTL: entries are overwritten by forced refreshes and
// superseding fetches, never expired.
type Store struct {
	entries *lru.Cache[string, Entry]
}

// NewStore creates a store bounded to maxEntries keys. Non-positive values
// fall back to the default bound.
func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	// lru.New only errors on a non-positive size, which is excluded above.
	entries, _ := lru.New[string, Entry](maxEntries)
	return &Store{entries: entries}
}

// Key builds the deterministic cache key for a selection. The group part uses
// the stable identifier so groups sharing a display label but differing in
// raw id never collide.
func Key(group domain.GroupInfo, date, timeRange string) string {
	return fmt.Sprintf("%s::%s::%s", date, timeRange, group.Identifier())
}

func (s *Store) Get(key string) (Entry, bool) {
	return s.entries.Get(key)
}

func (s *Store) Set(key string, entry Entry) {
	s.entries.Add(key, entry)
}

// Contains reports key presence without refreshing its recency.
func (s *Store) Contains(key string) bool {
	return s.entries.Contains(key)
}

func (s *Store) Len() int {
	return s.entries.Len()
}
