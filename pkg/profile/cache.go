package profile

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crossgaze/crossgaze/pkg/logger"
)

// Fetcher retrieves the current rows for one tracker list. Implementations
// may block on network I/O.
type Fetcher interface {
	FetchList(ctx context.Context, tracker string, list ListType) ([]Row, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, tracker string, list ListType) ([]Row, error)

func (f FetcherFunc) FetchList(ctx context.Context, tracker string, list ListType) ([]Row, error) {
	return f(ctx, tracker, list)
}

// Key addresses one cached list. Lookup is exact-match only; entries for
// different trackers never substitute for one another.
type Key struct {
	Tracker string
	List    ListType
}

// Entry holds the rows of one fetched list. Entries are never mutated after
// insertion, only replaced wholesale, so a reader holding an Entry pointer
// always sees a consistent snapshot.
type Entry struct {
	Tracker   string
	List      ListType
	Rows      []Row
	FetchedAt time.Time
}

// Age returns how long ago the entry was fetched.
func (e *Entry) Age() time.Duration {
	return time.Since(e.FetchedAt)
}

// Cache is an in-process store of profile lists keyed by (tracker, list type).
// There is no eviction: the source lists only change through user action on
// the tracker, so staleness within one run is accepted in exchange for not
// re-fetching on every search.
type Cache struct {
	fetcher Fetcher
	log     *logrus.Entry

	mu      sync.RWMutex
	entries map[Key]*Entry
}

func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		log:     logger.GetLogger("profile-cache"),
		entries: make(map[Key]*Entry),
	}
}

// GetOrFetch returns the cached entry for the key, fetching and storing it on
// first access. On fetch failure nothing is stored, so a subsequent call
// retries instead of serving a poisoned entry.
func (c *Cache) GetOrFetch(ctx context.Context, tracker string, list ListType) (*Entry, error) {
	key := Key{Tracker: tracker, List: list}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.log.Debugf("Serving cached %s list for %s (%d rows, fetched %s ago)",
			list, tracker, len(entry.Rows), entry.Age().Truncate(time.Second))
		return entry, nil
	}

	entry, err := c.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have populated the key while we were fetching;
	// first stored entry wins so both callers observe the same snapshot
	if existing, ok := c.entries[key]; ok {
		return existing, nil
	}

	c.entries[key] = entry
	return entry, nil
}

// Refresh unconditionally re-fetches the list and replaces any existing entry
// for the key. Replacement is a single pointer swap under the write lock, so
// concurrent readers observe either the old entry or the new one, never a mix.
func (c *Cache) Refresh(ctx context.Context, tracker string, list ListType) (*Entry, error) {
	key := Key{Tracker: tracker, List: list}

	entry, err := c.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	c.log.Debugf("Refreshed %s list for %s (%d rows)", list, tracker, len(entry.Rows))
	return entry, nil
}

// Peek returns the cached entry for the key without any fetch side effect.
func (c *Cache) Peek(tracker string, list ListType) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[Key{Tracker: tracker, List: list}]
	return entry, ok
}

func (c *Cache) fetch(ctx context.Context, key Key) (*Entry, error) {
	c.log.Debugf("Fetching %s list for %s", key.List, key.Tracker)

	rows, err := c.fetcher.FetchList(ctx, key.Tracker, key.List)
	if err != nil {
		return nil, &FetchError{Tracker: key.Tracker, List: key.List, Err: err}
	}

	// copy so the entry owns its rows regardless of what the fetcher does
	// with its slice afterwards
	owned := make([]Row, len(rows))
	copy(owned, rows)

	return &Entry{
		Tracker:   key.Tracker,
		List:      key.List,
		Rows:      owned,
		FetchedAt: time.Now(),
	}, nil
}
