package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls map[Key]int
	rows  map[Key][]Row
	errs  map[Key]error
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{
		calls: make(map[Key]int),
		rows:  make(map[Key][]Row),
		errs:  make(map[Key]error),
	}
}

func (f *countingFetcher) FetchList(_ context.Context, tracker string, list ListType) ([]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := Key{Tracker: tracker, List: list}
	f.calls[key]++

	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.rows[key], nil
}

func (f *countingFetcher) callCount(tracker string, list ListType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[Key{Tracker: tracker, List: list}]
}

func makeRows(ids ...int64) []Row {
	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, Row{TorrentID: id, GroupID: id * 10, GroupName: fmt.Sprintf("Group %d", id)})
	}
	return rows
}

func TestCache_GetOrFetch_Idempotent(t *testing.T) {
	fetcher := newCountingFetcher()
	fetcher.rows[Key{Tracker: "red", List: ListSnatched}] = makeRows(1, 2, 3)

	cache := NewCache(fetcher)
	ctx := context.Background()

	first, err := cache.GetOrFetch(ctx, "red", ListSnatched)
	require.NoError(t, err)
	require.Len(t, first.Rows, 3)

	second, err := cache.GetOrFetch(ctx, "red", ListSnatched)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fetcher.callCount("red", ListSnatched))
}

func TestCache_GetOrFetch_KeyScoping(t *testing.T) {
	fetcher := newCountingFetcher()
	fetcher.rows[Key{Tracker: "red", List: ListSnatched}] = makeRows(1)
	fetcher.rows[Key{Tracker: "ops", List: ListSnatched}] = makeRows(2)

	cache := NewCache(fetcher)
	ctx := context.Background()

	red, err := cache.GetOrFetch(ctx, "red", ListSnatched)
	require.NoError(t, err)

	// populating one tracker never populates the other
	_, ok := cache.Peek("ops", ListSnatched)
	assert.False(t, ok)

	ops, err := cache.GetOrFetch(ctx, "ops", ListSnatched)
	require.NoError(t, err)

	assert.NotSame(t, red, ops)
	assert.Equal(t, int64(1), red.Rows[0].TorrentID)
	assert.Equal(t, int64(2), ops.Rows[0].TorrentID)

	// same tracker, different list type is a distinct key too
	fetcher.rows[Key{Tracker: "red", List: ListUploaded}] = makeRows(3)
	uploaded, err := cache.GetOrFetch(ctx, "red", ListUploaded)
	require.NoError(t, err)
	assert.NotSame(t, red, uploaded)
	assert.Equal(t, 1, fetcher.callCount("red", ListSnatched))
}

func TestCache_GetOrFetch_FetchErrorNotCached(t *testing.T) {
	fetcher := newCountingFetcher()
	key := Key{Tracker: "red", List: ListDownloaded}
	fetcher.errs[key] = errors.New("tracker down")

	cache := NewCache(fetcher)
	ctx := context.Background()

	_, err := cache.GetOrFetch(ctx, "red", ListDownloaded)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "red", fetchErr.Tracker)
	assert.Equal(t, ListDownloaded, fetchErr.List)

	// no poisoned entry cached
	_, ok := cache.Peek("red", ListDownloaded)
	assert.False(t, ok)

	// a retry attempts the fetch again and succeeds
	fetcher.mu.Lock()
	delete(fetcher.errs, key)
	fetcher.rows[key] = makeRows(7)
	fetcher.mu.Unlock()

	entry, err := cache.GetOrFetch(ctx, "red", ListDownloaded)
	require.NoError(t, err)
	assert.Len(t, entry.Rows, 1)
	assert.Equal(t, 2, fetcher.callCount("red", ListDownloaded))
}

func TestCache_Refresh_ReplacesEntry(t *testing.T) {
	fetcher := newCountingFetcher()
	key := Key{Tracker: "red", List: ListSnatched}
	fetcher.rows[key] = makeRows(1, 2)

	cache := NewCache(fetcher)
	ctx := context.Background()

	old, err := cache.GetOrFetch(ctx, "red", ListSnatched)
	require.NoError(t, err)
	require.Len(t, old.Rows, 2)

	fetcher.mu.Lock()
	fetcher.rows[key] = makeRows(3, 4, 5)
	fetcher.mu.Unlock()

	refreshed, err := cache.Refresh(ctx, "red", ListSnatched)
	require.NoError(t, err)
	require.Len(t, refreshed.Rows, 3)
	assert.NotSame(t, old, refreshed)

	// subsequent reads observe only the new rows, never a mix
	entry, err := cache.GetOrFetch(ctx, "red", ListSnatched)
	require.NoError(t, err)
	assert.Same(t, refreshed, entry)
	for _, row := range entry.Rows {
		assert.GreaterOrEqual(t, row.TorrentID, int64(3))
	}

	peeked, ok := cache.Peek("red", ListSnatched)
	require.True(t, ok)
	assert.Same(t, refreshed, peeked)

	// the old entry is untouched, readers still holding it see the old snapshot
	assert.Len(t, old.Rows, 2)
}

func TestCache_Refresh_SafeWithConcurrentReaders(t *testing.T) {
	fetcher := newCountingFetcher()
	key := Key{Tracker: "red", List: ListSnatched}
	fetcher.rows[key] = makeRows(1, 2, 3)

	cache := NewCache(fetcher)
	ctx := context.Background()

	_, err := cache.GetOrFetch(ctx, "red", ListSnatched)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// readers must always observe a complete snapshot of one generation
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				entry, err := cache.GetOrFetch(ctx, "red", ListSnatched)
				if assert.NoError(t, err) {
					n := len(entry.Rows)
					assert.True(t, n == 3 || n == 5, "torn entry: %d rows", n)
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		rows := makeRows(1, 2, 3)
		if i%2 == 1 {
			rows = makeRows(4, 5, 6, 7, 8)
		}
		fetcher.mu.Lock()
		fetcher.rows[key] = rows
		fetcher.mu.Unlock()

		_, err := cache.Refresh(ctx, "red", ListSnatched)
		require.NoError(t, err)
	}

	close(stop)
	wg.Wait()
}

func TestCache_Peek_NoFetchSideEffect(t *testing.T) {
	fetcher := newCountingFetcher()
	cache := NewCache(fetcher)

	_, ok := cache.Peek("red", ListSnatched)
	assert.False(t, ok)
	assert.Equal(t, 0, fetcher.callCount("red", ListSnatched))
}

func TestCache_EntryOwnsRows(t *testing.T) {
	rows := makeRows(1, 2)
	fetcher := FetcherFunc(func(context.Context, string, ListType) ([]Row, error) {
		return rows, nil
	})

	cache := NewCache(fetcher)
	entry, err := cache.GetOrFetch(context.Background(), "red", ListSnatched)
	require.NoError(t, err)

	// mutating the fetcher's slice must not affect the cached entry
	rows[0] = Row{TorrentID: 999}
	assert.Equal(t, int64(1), entry.Rows[0].TorrentID)
}
