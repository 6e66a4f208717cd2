package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"board-activity/internal/cache"
	"board-activity/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_UsesStableIdentifier(t *testing.T) {
	withRaw := domain.GroupInfo{ID: "A", RawID: "grp-42", Name: "Group A"}
	assert.Equal(t, "2024-05-01::11:25〜11:30::grp-42", cache.Key(withRaw, "2024-05-01", "11:25〜11:30"))

	nameOnly := domain.GroupInfo{ID: "A", Name: "Group A"}
	assert.Equal(t, "2024-05-01::11:25〜11:30::Group A", cache.Key(nameOnly, "2024-05-01", "11:25〜11:30"))
}

func TestKey_NoCollisionAcrossRawIDs(t *testing.T) {
	a := domain.GroupInfo{ID: "A", RawID: "grp-1", Name: "Group A"}
	b := domain.GroupInfo{ID: "A", RawID: "grp-2", Name: "Group A"}
	assert.NotEqual(t,
		cache.Key(a, "2024-05-01", "11:25〜11:30"),
		cache.Key(b, "2024-05-01", "11:25〜11:30"),
		"same display label, different raw ids must not collide")
}

func TestStore_SetGetOverwrite(t *testing.T) {
	store := cache.NewStore(8)

	_, ok := store.Get("k")
	require.False(t, ok)
	assert.False(t, store.Contains("k"))

	first := cache.Entry{Summary: &domain.DiffSummary{Total: 1}, StoredAt: time.Now()}
	store.Set("k", first)

	got, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, got.Summary.Total)
	assert.True(t, store.Contains("k"))

	store.Set("k", cache.Entry{Summary: &domain.DiffSummary{Total: 2}, Err: "stale refresh failed"})
	got, ok = store.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, got.Summary.Total)
	assert.Equal(t, "stale refresh failed", got.Err)
	assert.Equal(t, 1, store.Len())
}

func TestStore_BoundedByKeyCount(t *testing.T) {
	store := cache.NewStore(4)
	for i := 0; i < 10; i++ {
		store.Set(fmt.Sprintf("key-%d", i), cache.Entry{})
	}
	assert.Equal(t, 4, store.Len())
	assert.True(t, store.Contains("key-9"), "most recent keys survive eviction")
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := cache.NewStore(64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d", j%16)
				store.Set(key, cache.Entry{Summary: &domain.DiffSummary{Total: n}})
				store.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, store.Len())
}
